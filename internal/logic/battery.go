package logic

// Drain period bounds, in seconds per percentage point.
const (
	FastestDrainPeriod        = 10
	SlowestDrainPeriod        = 20
	InitialTherapyDrainPeriod = 18
)

// Battery tracks charge and the rate at which it drains.
type Battery struct {
	percent     int
	ticks       int // seconds since last 1% deduction
	drainPeriod int
	fiveWarning bool
}

// NewBattery returns a full battery at the slowest drain rate.
func NewBattery() *Battery {
	return &Battery{
		percent:     100,
		drainPeriod: SlowestDrainPeriod,
	}
}

// Deplete advances the battery by one simulated second.
// The accumulator is compared against the drain period as it stands now;
// partial progress is never rescaled when the period changes.
func (b *Battery) Deplete() {
	b.ticks++
	if b.ticks/b.drainPeriod >= 1 {
		if b.percent > 0 {
			b.percent--
		}
		b.ticks = 0
	}
}

// IncreaseDrainRate shortens the drain period by one second, down to 10s.
func (b *Battery) IncreaseDrainRate() {
	if b.drainPeriod > FastestDrainPeriod {
		b.drainPeriod--
	}
}

// DecreaseDrainRate lengthens the drain period by two seconds, up to 20s.
func (b *Battery) DecreaseDrainRate() {
	b.drainPeriod += 2
	if b.drainPeriod > SlowestDrainPeriod {
		b.drainPeriod = SlowestDrainPeriod
	}
}

// ResetDrainRateToDefault restores the slowest drain rate.
func (b *Battery) ResetDrainRateToDefault() {
	b.drainPeriod = SlowestDrainPeriod
}

// SetInitialTherapyDrainRate applies the drain rate used when therapy begins.
func (b *Battery) SetInitialTherapyDrainRate() {
	b.drainPeriod = InitialTherapyDrainPeriod
}

// SetCharge overrides the charge percentage. Callers keep it within [0,100].
func (b *Battery) SetCharge(percent int) {
	b.percent = percent
}

// Charge returns the current charge percentage.
func (b *Battery) Charge() int {
	return b.percent
}

// DrainPeriod returns the seconds needed to lose one percentage point.
func (b *Battery) DrainPeriod() int {
	return b.drainPeriod
}

// FiveWarningShown reports whether the 5% warning has been latched.
func (b *Battery) FiveWarningShown() bool {
	return b.fiveWarning
}

// SetFiveWarningShown sets or clears the 5% warning latch.
func (b *Battery) SetFiveWarningShown(shown bool) {
	b.fiveWarning = shown
}
