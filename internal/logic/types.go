// Package logic contains the control logic of the CES device: battery,
// session countdown, timers and the safety interlocks between them.
// This package has NO external dependencies (no MQTT, HTTP, OS, or time.Sleep).
// Time is always injectable: timers advance only when the owner calls Advance.
package logic

import (
	"fmt"
	"time"
)

// Waveform is the stimulation waveform of a therapy session.
type Waveform int

const (
	WaveformAlpha Waveform = iota
	WaveformBeta
	WaveformGamma
)

func (w Waveform) String() string {
	switch w {
	case WaveformAlpha:
		return "Alpha"
	case WaveformBeta:
		return "Beta"
	case WaveformGamma:
		return "Gamma"
	}
	return fmt.Sprintf("Waveform(%d)", int(w))
}

// Valid reports whether w is one of the selectable waveforms.
func (w Waveform) Valid() bool {
	return w >= WaveformAlpha && w <= WaveformGamma
}

// Frequency is the stimulation frequency of a therapy session.
type Frequency int

const (
	Freq0_5Hz Frequency = iota
	Freq77Hz
	Freq100Hz
)

func (f Frequency) String() string {
	switch f {
	case Freq0_5Hz:
		return "0.5Hz"
	case Freq77Hz:
		return "77Hz"
	case Freq100Hz:
		return "100Hz"
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// Valid reports whether f is one of the selectable frequencies.
func (f Frequency) Valid() bool {
	return f >= Freq0_5Hz && f <= Freq100Hz
}

// TherapyTime is a duration choice offered to the user.
type TherapyTime int

const (
	Therapy20Min TherapyTime = iota
	Therapy40Min
	Therapy60Min
)

// Seconds returns the session length for the choice, or 0 if invalid.
func (t TherapyTime) Seconds() int {
	switch t {
	case Therapy20Min:
		return 1200
	case Therapy40Min:
		return 2400
	case Therapy60Min:
		return 3600
	}
	return 0
}

// Valid reports whether t is one of the selectable durations.
func (t TherapyTime) Valid() bool {
	return t >= Therapy20Min && t <= Therapy60Min
}

// Power and battery constants.
const (
	MaxPowerLevel        = 10
	PowerUnitMicroamps   = 50
	InitialTherapyPower  = 2
	OverCurrentMicroamps = 700

	LowBatteryPercent      = 5
	CriticalBatteryPercent = 2

	DefaultDurationSeconds = 1200
)

// EventType identifies a notification emitted by the Device.
type EventType string

const (
	EventSessionStarted  EventType = "SESSION_STARTED"
	EventCountdown       EventType = "COUNTDOWN"
	EventSessionPaused   EventType = "SESSION_PAUSED"
	EventSessionResumed  EventType = "SESSION_RESUMED"
	EventSessionEnded    EventType = "SESSION_ENDED"
	EventRecordAdded     EventType = "RECORD_ADDED"
	EventBattery         EventType = "BATTERY"
	EventLowBattery      EventType = "LOW_BATTERY"
	EventCriticalBattery EventType = "CRITICAL_BATTERY"
	EventPowerOn         EventType = "POWER_ON"
	EventPowerOff        EventType = "POWER_OFF"
	EventDisabled        EventType = "DISABLED"
	EventEnabled         EventType = "ENABLED"
)

// Reasons attached to POWER_OFF and SESSION_ENDED events.
const (
	ReasonUser       = "user"
	ReasonBattery    = "battery"
	ReasonDisabled   = "disabled"
	ReasonInactivity = "inactivity"
	ReasonCompleted  = "completed"
	ReasonContact    = "contact_lost"
)

// Event is a notification for the presentation layer.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Reason    string
	// Remaining is the session countdown at the time of the event.
	Remaining int
	// Battery is the charge percentage at the time of the event.
	Battery int
	// Record is set for RECORD_ADDED only.
	Record *Record
}

// State is a point-in-time copy of everything a display needs.
type State struct {
	Powered          bool
	Disabled         bool
	InTherapy        bool
	SkinContact      bool
	Recording        bool
	Battery          int
	DrainPeriod      int
	Waveform         Waveform
	Frequency        Frequency
	PowerLevel       int
	Remaining        int
	LastDuration     int
	Running          bool
	StartedAt        time.Time
	InactiveSeconds  int
	GracePending     bool
	RecordCount      int
	NextRecordNumber int
}
