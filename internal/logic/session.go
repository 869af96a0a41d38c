package logic

import "time"

// SessionObserver receives lifecycle callbacks from a TherapySession.
// The Device implements it; the session holds no other reference to its owner.
type SessionObserver interface {
	// SessionStarted is called once the countdown has been armed.
	SessionStarted(at time.Time)
	// CountdownChanged is called after every countdown tick.
	CountdownChanged(at time.Time, remaining int)
	// SessionFinished is called when the countdown reaches zero.
	SessionFinished(at time.Time, elapsed int)
}

// TherapySession is one configurable treatment run.
type TherapySession struct {
	waveform     Waveform
	frequency    Frequency
	powerLevel   int
	remaining    int
	lastDuration int
	running      bool
	startedAt    time.Time

	clock    *Clock
	observer SessionObserver
}

// NewTherapySession creates an idle session with default settings.
// tick is the length of one simulated second.
func NewTherapySession(tick time.Duration, observer SessionObserver) *TherapySession {
	s := &TherapySession{
		waveform:     WaveformAlpha,
		frequency:    Freq0_5Hz,
		remaining:    DefaultDurationSeconds,
		lastDuration: DefaultDurationSeconds,
		observer:     observer,
	}
	s.clock = NewClock(tick, s.onTick)
	return s
}

// StartSession begins a new countdown from the last selected duration.
func (s *TherapySession) StartSession(now time.Time) {
	s.startedAt = now
	s.powerLevel = InitialTherapyPower
	s.running = true
	s.remaining = s.lastDuration
	s.clock.Start(now)
	s.observer.SessionStarted(now)
}

// PauseSession stops the countdown without touching the remaining time.
func (s *TherapySession) PauseSession() {
	s.clock.Stop()
	s.running = false
}

// ResumeSession restarts the countdown from the remaining time.
func (s *TherapySession) ResumeSession(now time.Time) {
	s.running = true
	s.clock.Start(now)
}

func (s *TherapySession) onTick(at time.Time) {
	s.remaining--
	s.observer.CountdownChanged(at, s.remaining)

	if s.remaining <= 0 {
		s.clock.Stop()
		s.observer.SessionFinished(at, s.lastDuration-s.remaining)
		s.running = false
	}
}

// Advance delivers any countdown ticks due at or before now.
func (s *TherapySession) Advance(now time.Time) {
	s.clock.Advance(now)
}

// Clock returns the countdown clock.
func (s *TherapySession) Clock() *Clock { return s.clock }

// Elapsed returns how much of the selected duration has run.
func (s *TherapySession) Elapsed() int { return s.lastDuration - s.remaining }

func (s *TherapySession) Waveform() Waveform { return s.waveform }
func (s *TherapySession) Frequency() Frequency { return s.frequency }
func (s *TherapySession) PowerLevel() int { return s.powerLevel }
func (s *TherapySession) Remaining() int { return s.remaining }
func (s *TherapySession) LastDuration() int { return s.lastDuration }
func (s *TherapySession) IsRunning() bool { return s.running }
func (s *TherapySession) StartedAt() time.Time { return s.startedAt }

func (s *TherapySession) SetWaveform(w Waveform) { s.waveform = w }
func (s *TherapySession) SetFrequency(f Frequency) { s.frequency = f }
func (s *TherapySession) SetPowerLevel(level int) { s.powerLevel = level }
func (s *TherapySession) SetRemaining(seconds int) { s.remaining = seconds }
func (s *TherapySession) SetLastDuration(seconds int) { s.lastDuration = seconds }
