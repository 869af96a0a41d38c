// Package control is the command surface of the device: it parses text
// commands, validates their arguments and applies them to a logic.Device.
package control

import (
	"strconv"
	"strings"

	deverrors "github.com/sweeney/ces-device/internal/errors"
	"github.com/sweeney/ces-device/internal/logic"
)

// Op names a command.
type Op string

const (
	OpPower           Op = "power"
	OpContact         Op = "contact"
	OpUp              Op = "up"
	OpDown            Op = "down"
	OpWaveform        Op = "waveform"
	OpFrequency       Op = "frequency"
	OpTime            Op = "time"
	OpRecord          Op = "record"
	OpAdminBattery    Op = "admin battery"
	OpAdminPower      Op = "admin power"
	OpAdminDisable    Op = "admin disable"
	OpAdminEnable     Op = "admin enable"
	OpAdminContact    Op = "admin contact"
	OpAdminInactivity Op = "admin inactivity"
	OpStatus          Op = "status"
	OpRecords         Op = "records"
)

// Command is a parsed, validated command.
type Command struct {
	Op Op
	// Arg is the selection index or numeric value, when the command takes one.
	Arg int
	// Toggle is set for a bare "contact", which flips the current state.
	Toggle bool
	// On is the requested contact state when Toggle is false.
	On bool
}

// String renders the command in its text form.
func (c Command) String() string {
	switch c.Op {
	case OpWaveform, OpFrequency, OpTime, OpAdminBattery, OpAdminPower:
		return string(c.Op) + " " + strconv.Itoa(c.Arg)
	case OpContact, OpAdminContact:
		if c.Toggle {
			return string(c.Op)
		}
		if c.On {
			return string(c.Op) + " on"
		}
		return string(c.Op) + " off"
	}
	return string(c.Op)
}

// IsQuery reports whether the command only reads state.
func (c Command) IsQuery() bool {
	return c.Op == OpStatus || c.Op == OpRecords
}

// Parse turns a line of text into a Command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}, deverrors.NewInvalidRequest("empty command")
	}

	if fields[0] == "admin" {
		return parseAdmin(line, fields[1:])
	}

	op := Op(fields[0])
	args := fields[1:]
	switch op {
	case OpPower, OpUp, OpDown, OpRecord, OpStatus, OpRecords:
		if err := noArgs(op, args); err != nil {
			return Command{}, err
		}
		return Command{Op: op}, nil

	case OpContact:
		if len(args) == 0 {
			return Command{Op: op, Toggle: true}, nil
		}
		on, err := parseOnOff(op, args)
		if err != nil {
			return Command{}, err
		}
		return Command{Op: op, On: on}, nil

	case OpWaveform, OpFrequency, OpTime:
		n, err := parseInt(op, args)
		if err != nil {
			return Command{}, err
		}
		if n < 0 || n > 2 {
			return Command{}, deverrors.NewInvalidChoice(string(op), n, 2)
		}
		return Command{Op: op, Arg: n}, nil
	}

	return Command{}, deverrors.NewUnknownCommand(strings.TrimSpace(line))
}

func parseAdmin(line string, fields []string) (Command, error) {
	if len(fields) == 0 {
		return Command{}, deverrors.NewUnknownCommand(strings.TrimSpace(line))
	}
	op := Op("admin " + fields[0])
	args := fields[1:]

	switch op {
	case OpAdminDisable, OpAdminEnable, OpAdminInactivity:
		if err := noArgs(op, args); err != nil {
			return Command{}, err
		}
		return Command{Op: op}, nil

	case OpAdminContact:
		on, err := parseOnOff(op, args)
		if err != nil {
			return Command{}, err
		}
		return Command{Op: op, On: on}, nil

	case OpAdminBattery:
		n, err := parseInt(op, args)
		if err != nil {
			return Command{}, err
		}
		if n < 0 || n > 100 {
			return Command{}, deverrors.NewInvalidChoice("battery", n, 100)
		}
		return Command{Op: op, Arg: n}, nil

	case OpAdminPower:
		n, err := parseInt(op, args)
		if err != nil {
			return Command{}, err
		}
		if n < 0 {
			return Command{}, deverrors.NewInvalidRequest("admin power: units must not be negative")
		}
		return Command{Op: op, Arg: n}, nil
	}

	return Command{}, deverrors.NewUnknownCommand(strings.TrimSpace(line))
}

func noArgs(op Op, args []string) error {
	if len(args) != 0 {
		return deverrors.NewInvalidRequest(string(op) + " takes no arguments")
	}
	return nil
}

func parseInt(op Op, args []string) (int, error) {
	if len(args) != 1 {
		return 0, deverrors.NewInvalidRequest(string(op) + " takes one numeric argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, deverrors.NewInvalidRequest(string(op) + ": not a number: " + args[0])
	}
	return n, nil
}

func parseOnOff(op Op, args []string) (bool, error) {
	if len(args) == 1 {
		switch args[0] {
		case "on":
			return true, nil
		case "off":
			return false, nil
		}
	}
	return false, deverrors.NewInvalidRequest(string(op) + " takes on or off")
}

// Apply executes cmd against d. Commands that are not allowed in the
// current state are ignored, as the buttons of the device would be.
// Query commands do nothing here.
func Apply(d *logic.Device, cmd Command) {
	if cmd.IsQuery() {
		return
	}
	if cmd.Op != OpAdminInactivity {
		d.ResetInactivity()
	}

	switch cmd.Op {
	case OpPower:
		d.TogglePower()

	case OpContact:
		on := cmd.On
		if cmd.Toggle {
			on = !d.SkinContact()
		}
		d.SetContact(on)

	case OpAdminContact:
		d.SetContact(cmd.On)

	case OpUp:
		if d.InTherapy() {
			d.IncreasePower()
		}

	case OpDown:
		if d.InTherapy() {
			d.DecreasePower()
		}

	case OpWaveform, OpFrequency, OpTime:
		if !d.IsPowered() || d.InTherapy() {
			return
		}
		switch cmd.Op {
		case OpWaveform:
			d.SelectWaveform(logic.Waveform(cmd.Arg))
		case OpFrequency:
			d.SelectFrequency(logic.Frequency(cmd.Arg))
		case OpTime:
			d.SelectTherapyTime(logic.TherapyTime(cmd.Arg))
		}

	case OpRecord:
		d.ToggleRecording()

	case OpAdminBattery:
		d.SetBatteryCharge(cmd.Arg)

	case OpAdminPower:
		d.SetPowerLevelRaw(cmd.Arg)

	case OpAdminDisable:
		d.SetDisabled(true)

	case OpAdminEnable:
		d.SetDisabled(false)

	case OpAdminInactivity:
		d.BumpInactivity()
	}
}
