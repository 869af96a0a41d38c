package logic

import "time"

// Config holds the timing parameters of a Device.
type Config struct {
	// Tick is the length of one simulated second.
	Tick time.Duration
	// GracePeriod is how long a paused session waits for skin contact.
	GracePeriod time.Duration
	// InactivityStep is added to the inactivity counter on every tick.
	InactivityStep int
	// InactivityLimit powers the device off once reached.
	InactivityLimit int
	// StartPowered powers the device on at construction.
	StartPowered bool
}

// DefaultConfig returns the timing of the physical device.
func DefaultConfig() Config {
	return Config{
		Tick:            time.Second,
		GracePeriod:     5 * time.Second,
		InactivityStep:  60,
		InactivityLimit: 1800,
		StartPowered:    true,
	}
}

// Device is the top-level controller. It owns the battery and the therapy
// session and enforces the interlocks between them.
//
// Device is not safe for concurrent use. All commands and Advance calls
// must come from one goroutine.
type Device struct {
	cfg Config
	now func() time.Time

	battery *Battery
	session *TherapySession

	batteryClock    *Clock
	inactivityClock *Clock
	graceTimer      *Clock

	powered     bool
	disabled    bool
	inTherapy   bool
	skinContact bool
	recording   bool

	inactive     int
	nextRecordID int
	records      []Record
	events       []Event
}

// NewDevice creates a device. now supplies the time for commands; timers
// only fire from Advance.
func NewDevice(cfg Config, now func() time.Time) *Device {
	d := &Device{
		cfg:     cfg,
		now:     now,
		battery: NewBattery(),
	}
	d.session = NewTherapySession(cfg.Tick, sessionHooks{d})
	d.batteryClock = NewClock(cfg.Tick, d.batteryTick)
	d.inactivityClock = NewClock(cfg.Tick, d.inactivityTick)
	d.graceTimer = NewOneShot(cfg.GracePeriod, d.graceExpired)

	if cfg.StartPowered {
		d.setPowered(now(), true, ReasonUser)
	}
	return d
}

// sessionHooks adapts Device to SessionObserver without exposing the
// callbacks on Device itself.
type sessionHooks struct{ d *Device }

func (h sessionHooks) SessionStarted(at time.Time) {
	h.d.inTherapy = true
	h.d.emit(at, EventSessionStarted, "")
	h.d.emit(at, EventCountdown, "")
}

func (h sessionHooks) CountdownChanged(at time.Time, remaining int) {
	h.d.emit(at, EventCountdown, "")
}

func (h sessionHooks) SessionFinished(at time.Time, elapsed int) {
	d := h.d
	d.stopSession(at, elapsed, ReasonCompleted)
	d.recording = false
	d.dropContact()
	d.session.SetPowerLevel(InitialTherapyPower)
}

// Advance fires every timer due at or before now, in time order. The
// session countdown goes first when fires coincide, so a session that ends
// on this tick is closed before the battery is checked.
func (d *Device) Advance(now time.Time) {
	AdvanceAll(now, d.session.Clock(), d.graceTimer, d.batteryClock, d.inactivityClock)
}

// Events returns and clears the pending notifications.
func (d *Device) Events() []Event {
	ev := d.events
	d.events = nil
	return ev
}

func (d *Device) emit(at time.Time, typ EventType, reason string) {
	d.events = append(d.events, Event{
		Timestamp: at,
		Type:      typ,
		Reason:    reason,
		Remaining: d.session.Remaining(),
		Battery:   d.battery.Charge(),
	})
}

// IncreasePower raises the intensity by one unit, up to the maximum.
func (d *Device) IncreasePower() {
	level := d.session.PowerLevel() + 1
	if level > MaxPowerLevel {
		level = MaxPowerLevel
	}
	d.session.SetPowerLevel(level)
	d.battery.IncreaseDrainRate()
}

// DecreasePower lowers the intensity by two units. Therapy never drops
// below one unit; outside therapy the floor is zero.
func (d *Device) DecreasePower() {
	floor := 0
	if d.inTherapy {
		floor = 1
	}
	level := d.session.PowerLevel() - 2
	if level < floor {
		level = floor
	}
	d.session.SetPowerLevel(level)
	d.battery.DecreaseDrainRate()
}

// SelectFrequency applies a validated frequency choice.
func (d *Device) SelectFrequency(f Frequency) {
	d.session.SetFrequency(f)
}

// SelectWaveform applies a validated waveform choice.
func (d *Device) SelectWaveform(w Waveform) {
	d.session.SetWaveform(w)
}

// SelectTherapyTime sets the countdown and the duration a restarted
// session will run for.
func (d *Device) SelectTherapyTime(t TherapyTime) {
	seconds := t.Seconds()
	if seconds == 0 {
		return
	}
	d.session.SetRemaining(seconds)
	d.session.SetLastDuration(seconds)
	d.emit(d.now(), EventCountdown, "")
}

// StartRecording marks the current session to be saved when it ends.
func (d *Device) StartRecording() {
	d.recording = true
}

// SetRecordingEnabled sets whether the session result is saved.
func (d *Device) SetRecordingEnabled(enabled bool) {
	d.recording = enabled
}

// ToggleRecording flips recording. Ignored while powered off.
func (d *Device) ToggleRecording() {
	if !d.powered {
		return
	}
	d.recording = !d.recording
}

// SaveRecord builds a record of the current session and consumes a
// record ID. Session and battery state are left untouched.
func (d *Device) SaveRecord(elapsed int) Record {
	r := Record{
		ID:         d.nextRecordID,
		StartedAt:  d.session.StartedAt(),
		Elapsed:    elapsed,
		Waveform:   d.session.Waveform(),
		Frequency:  d.session.Frequency(),
		PowerLevel: d.session.PowerLevel(),
	}
	d.nextRecordID++
	return r
}

// StopSession ends the current therapy, saving a record if recording is
// enabled. Session settings are kept for the next start. No-op when not
// in therapy.
func (d *Device) StopSession(elapsed int) {
	d.stopSession(d.now(), elapsed, ReasonUser)
}

func (d *Device) stopSession(at time.Time, elapsed int, reason string) {
	if !d.inTherapy {
		return
	}

	if d.recording {
		r := d.SaveRecord(elapsed)
		d.records = append([]Record{r}, d.records...)
		d.recording = false
		d.emit(at, EventRecordAdded, "")
		d.events[len(d.events)-1].Record = &r
	}

	if d.session.Clock().Active() {
		d.session.Clock().Stop()
	}
	d.graceTimer.Stop()
	d.inTherapy = false
	d.emit(at, EventSessionEnded, reason)
}

// endTherapy stops an active therapy at its current elapsed time and drops
// skin contact, as every forced shutdown does.
func (d *Device) endTherapy(at time.Time, reason string) {
	if !d.inTherapy {
		return
	}
	d.stopSession(at, d.session.Elapsed(), reason)
	d.dropContact()
}

// dropContact clears skin contact outside therapy.
func (d *Device) dropContact() {
	d.skinContact = false
	d.battery.ResetDrainRateToDefault()
}

// SetPowered powers the device on or off. Powering on requires more than
// 2% charge and an enabled device; otherwise it is a no-op. Powering off
// ends any active therapy first.
func (d *Device) SetPowered(on bool) {
	d.setPowered(d.now(), on, ReasonUser)
}

func (d *Device) setPowered(at time.Time, on bool, reason string) {
	if on == d.powered {
		return
	}
	if on {
		if d.battery.Charge() <= CriticalBatteryPercent || d.disabled {
			return
		}
		d.powered = true
		d.inactive = 0
		d.batteryClock.Start(at)
		d.inactivityClock.Start(at)
		d.emit(at, EventPowerOn, reason)
		d.emit(at, EventBattery, "")
		return
	}

	d.endTherapy(at, reason)
	d.powered = false
	d.inactive = 0
	d.recording = false
	d.batteryClock.Stop()
	d.inactivityClock.Stop()
	d.emit(at, EventPowerOff, reason)
}

// TogglePower is the power button. Turning on with skin contact already
// present starts therapy immediately.
func (d *Device) TogglePower() {
	at := d.now()
	if d.powered {
		d.setPowered(at, false, ReasonUser)
		return
	}
	d.setPowered(at, true, ReasonUser)
	if d.powered && d.skinContact {
		d.beginTherapy(at)
	}
}

func (d *Device) beginTherapy(at time.Time) {
	d.session.StartSession(at)
	d.battery.SetInitialTherapyDrainRate()
	d.inactive = 0
}

// SetContact applies a skin contact change.
//
// Contact gained while powered starts a session, or resumes one paused by
// an earlier contact loss. Contact lost during therapy pauses the session
// and arms the grace timer; if contact is still missing when it fires,
// the session ends.
func (d *Device) SetContact(on bool) {
	if on == d.skinContact {
		return
	}
	at := d.now()

	if !on {
		if d.inTherapy {
			d.skinContact = false
			d.session.PauseSession()
			d.graceTimer.Start(at)
			d.emit(at, EventSessionPaused, ReasonContact)
			return
		}
		d.dropContact()
		return
	}

	d.skinContact = true
	if !d.powered {
		return
	}
	if d.inTherapy {
		if !d.session.IsRunning() {
			d.graceTimer.Stop()
			d.session.ResumeSession(at)
			d.emit(at, EventSessionResumed, "")
		}
		return
	}
	d.beginTherapy(at)
}

func (d *Device) graceExpired(at time.Time) {
	if d.session.IsRunning() {
		return
	}
	d.stopSession(at, d.session.Elapsed(), ReasonContact)
	d.inTherapy = false
	d.recording = false
	d.battery.ResetDrainRateToDefault()
	d.session.SetPowerLevel(InitialTherapyPower)
}

func (d *Device) batteryTick(at time.Time) {
	if !d.powered {
		return
	}
	d.battery.Deplete()
	d.emit(at, EventBattery, "")

	charge := d.battery.Charge()
	switch {
	case charge == LowBatteryPercent:
		if !d.battery.FiveWarningShown() {
			d.emit(at, EventLowBattery, "")
			d.battery.SetFiveWarningShown(true)
		}
	case charge <= CriticalBatteryPercent:
		d.battery.SetFiveWarningShown(false)
		d.emit(at, EventCriticalBattery, "")
		d.setPowered(at, false, ReasonBattery)
	default:
		d.battery.SetFiveWarningShown(false)
	}
}

func (d *Device) inactivityTick(at time.Time) {
	if d.inTherapy || !d.powered {
		return
	}
	d.inactive += d.cfg.InactivityStep
	if d.inactive >= d.cfg.InactivityLimit {
		d.setPowered(at, false, ReasonInactivity)
	}
}

// BumpInactivity applies one inactivity step immediately.
func (d *Device) BumpInactivity() {
	d.inactivityTick(d.now())
}

// ResetInactivity records a user interaction.
func (d *Device) ResetInactivity() {
	d.inactive = 0
}

// SetDisabled applies the administrative lockout. Disabling ends any
// therapy and powers the device off; enabling restores the default drain
// rate and intensity but leaves the device off.
func (d *Device) SetDisabled(disabled bool) {
	at := d.now()
	if disabled {
		d.endTherapy(at, ReasonDisabled)
		wasDisabled := d.disabled
		d.disabled = true
		d.setPowered(at, false, ReasonDisabled)
		if !wasDisabled {
			d.emit(at, EventDisabled, "")
		}
		return
	}
	if !d.disabled {
		return
	}
	d.battery.ResetDrainRateToDefault()
	d.session.SetPowerLevel(InitialTherapyPower)
	d.disabled = false
	d.emit(at, EventEnabled, "")
}

// SetPowerLevelRaw is the administrative intensity override in microamps.
// Values up to 500 set the level directly; values above 700 trip the
// over-current lockout.
func (d *Device) SetPowerLevelRaw(microamps int) {
	if microamps >= 0 && microamps <= MaxPowerLevel*PowerUnitMicroamps {
		d.session.SetPowerLevel(microamps / PowerUnitMicroamps)
	}
	if microamps > OverCurrentMicroamps {
		d.SetDisabled(true)
	}
}

// SetBatteryCharge is the administrative charge override.
func (d *Device) SetBatteryCharge(percent int) {
	d.battery.SetCharge(percent)
	d.emit(d.now(), EventBattery, "")
}

// Records returns the saved records, newest first.
func (d *Device) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

func (d *Device) Battery() *Battery { return d.battery }
func (d *Device) Session() *TherapySession { return d.session }
func (d *Device) IsPowered() bool { return d.powered }
func (d *Device) IsDisabled() bool { return d.disabled }
func (d *Device) InTherapy() bool { return d.inTherapy }
func (d *Device) SkinContact() bool { return d.skinContact }
func (d *Device) Recording() bool { return d.recording }
func (d *Device) InactiveSeconds() int { return d.inactive }
func (d *Device) GracePending() bool { return d.graceTimer.Active() }
func (d *Device) NextRecordNumber() int { return d.nextRecordID }

// Snapshot returns the current state for display.
func (d *Device) Snapshot() State {
	return State{
		Powered:          d.powered,
		Disabled:         d.disabled,
		InTherapy:        d.inTherapy,
		SkinContact:      d.skinContact,
		Recording:        d.recording,
		Battery:          d.battery.Charge(),
		DrainPeriod:      d.battery.DrainPeriod(),
		Waveform:         d.session.Waveform(),
		Frequency:        d.session.Frequency(),
		PowerLevel:       d.session.PowerLevel(),
		Remaining:        d.session.Remaining(),
		LastDuration:     d.session.LastDuration(),
		Running:          d.session.IsRunning(),
		StartedAt:        d.session.StartedAt(),
		InactiveSeconds:  d.inactive,
		GracePending:     d.graceTimer.Active(),
		RecordCount:      len(d.records),
		NextRecordNumber: d.nextRecordID,
	}
}
