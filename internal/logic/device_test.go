package logic

import (
	"testing"
	"time"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

// newTestDevice returns a powered device with the inactivity interlock
// pushed out of reach, so long tick sequences are not cut short.
func newTestDevice(t *testing.T) (*Device, *testClock) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.InactivityLimit = 1 << 30
	return newDeviceWithConfig(t, cfg)
}

func newDeviceWithConfig(t *testing.T, cfg Config) (*Device, *testClock) {
	t.Helper()
	clk := &testClock{t: t0}
	d := NewDevice(cfg, clk.now)
	d.Events()
	return d, clk
}

// step advances n simulated seconds, one second at a time.
func step(d *Device, clk *testClock, n int) {
	for i := 0; i < n; i++ {
		clk.t = clk.t.Add(time.Second)
		d.Advance(clk.t)
	}
}

func countEvents(events []Event, typ EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func findEvent(events []Event, typ EventType) *Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func TestNewDevice(t *testing.T) {
	clk := &testClock{t: t0}
	d := NewDevice(DefaultConfig(), clk.now)

	if !d.IsPowered() {
		t.Error("device should start powered")
	}
	if d.IsDisabled() || d.InTherapy() || d.SkinContact() || d.Recording() {
		t.Errorf("unexpected initial state: %+v", d.Snapshot())
	}
	if d.Battery().Charge() != 100 {
		t.Errorf("expected full battery, got %d", d.Battery().Charge())
	}

	events := d.Events()
	if len(events) != 2 || events[0].Type != EventPowerOn || events[1].Type != EventBattery {
		t.Errorf("expected POWER_ON, BATTERY; got %+v", events)
	}
	if len(d.Events()) != 0 {
		t.Error("Events should drain the queue")
	}
}

func TestNewDeviceUnpowered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartPowered = false
	d, clk := newDeviceWithConfig(t, cfg)

	if d.IsPowered() {
		t.Fatal("device should start off")
	}
	step(d, clk, 100)
	if d.Battery().Charge() != 100 {
		t.Errorf("battery drained while off: %d", d.Battery().Charge())
	}
}

func TestContactStartsTherapy(t *testing.T) {
	d, _ := newTestDevice(t)

	d.SetContact(true)

	if !d.InTherapy() {
		t.Fatal("expected therapy to start on contact")
	}
	s := d.Session()
	if !s.IsRunning() {
		t.Error("expected running session")
	}
	if s.PowerLevel() != InitialTherapyPower {
		t.Errorf("expected power %d, got %d", InitialTherapyPower, s.PowerLevel())
	}
	if d.Battery().DrainPeriod() != InitialTherapyDrainPeriod {
		t.Errorf("expected drain period %d, got %d", InitialTherapyDrainPeriod, d.Battery().DrainPeriod())
	}
	if !s.StartedAt().Equal(t0) {
		t.Errorf("expected start %v, got %v", t0, s.StartedAt())
	}

	events := d.Events()
	if countEvents(events, EventSessionStarted) != 1 {
		t.Errorf("expected SESSION_STARTED, got %+v", events)
	}
	if e := findEvent(events, EventCountdown); e == nil || e.Remaining != DefaultDurationSeconds {
		t.Errorf("expected COUNTDOWN at %d, got %+v", DefaultDurationSeconds, e)
	}
}

func TestContactIgnoredWhileOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartPowered = false
	d, _ := newDeviceWithConfig(t, cfg)

	d.SetContact(true)
	if d.InTherapy() {
		t.Fatal("therapy must not start while powered off")
	}
	if !d.SkinContact() {
		t.Error("contact should still be tracked")
	}

	d.TogglePower()
	if !d.IsPowered() || !d.InTherapy() {
		t.Errorf("power on with contact should start therapy: %+v", d.Snapshot())
	}
}

func TestContactLostWithoutRestoreEndsSession(t *testing.T) {
	d, clk := newTestDevice(t)
	d.SetContact(true)
	d.StartRecording()
	step(d, clk, 30)
	d.Events()

	d.SetContact(false)
	if !d.InTherapy() || d.Session().IsRunning() {
		t.Fatalf("expected paused therapy, got %+v", d.Snapshot())
	}
	if !d.GracePending() {
		t.Error("expected grace timer armed")
	}
	remaining := d.Session().Remaining()

	step(d, clk, 4)
	if !d.InTherapy() {
		t.Fatal("session ended before the grace period elapsed")
	}
	if d.Session().Remaining() != remaining {
		t.Errorf("paused session counted down: %d -> %d", remaining, d.Session().Remaining())
	}

	step(d, clk, 1)
	if d.InTherapy() {
		t.Fatal("expected therapy to end after grace period")
	}
	if d.Recording() {
		t.Error("recording should be cleared")
	}
	if d.Battery().DrainPeriod() != SlowestDrainPeriod {
		t.Errorf("expected default drain, got %d", d.Battery().DrainPeriod())
	}
	records := d.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Elapsed != 30 {
		t.Errorf("expected elapsed 30, got %d", records[0].Elapsed)
	}
	ended := findEvent(d.Events(), EventSessionEnded)
	if ended == nil || ended.Reason != ReasonContact {
		t.Errorf("expected SESSION_ENDED with reason %s, got %+v", ReasonContact, ended)
	}
}

func TestContactRestoredResumesSession(t *testing.T) {
	d, clk := newTestDevice(t)
	d.SetContact(true)
	d.StartRecording()
	step(d, clk, 10)

	d.SetContact(false)
	step(d, clk, 4)
	d.SetContact(true)

	if !d.Session().IsRunning() {
		t.Fatal("expected session to resume")
	}
	if d.GracePending() {
		t.Error("grace timer should be cancelled on resume")
	}

	step(d, clk, 10)
	if !d.InTherapy() {
		t.Fatal("resumed session should still be in therapy")
	}
	if len(d.Records()) != 0 {
		t.Errorf("no record expected, got %d", len(d.Records()))
	}
	if d.Session().Remaining() != DefaultDurationSeconds-20 {
		t.Errorf("expected %d remaining, got %d", DefaultDurationSeconds-20, d.Session().Remaining())
	}
}

func TestSessionRunsToCompletion(t *testing.T) {
	d, clk := newTestDevice(t)
	d.SelectTherapyTime(Therapy60Min)
	d.StartRecording()
	d.SetContact(true)

	for i := 0; i < 3600; i += 900 {
		d.SetBatteryCharge(100)
		step(d, clk, 900)
	}

	if d.InTherapy() {
		t.Fatal("expected session to end")
	}
	records := d.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Elapsed != 3600 {
		t.Errorf("expected elapsed 3600, got %d", records[0].Elapsed)
	}
	if d.SkinContact() || d.Recording() {
		t.Error("session end should drop contact and recording")
	}
	if d.Session().LastDuration() != 3600 {
		t.Errorf("last duration should persist, got %d", d.Session().LastDuration())
	}
	if !d.IsPowered() {
		t.Error("device should stay powered after a completed session")
	}
}

func TestSessionEndProcessedBeforeBatteryShutdown(t *testing.T) {
	d, clk := newTestDevice(t)
	d.Session().SetLastDuration(20)
	d.StartRecording()
	d.SetContact(true)
	// Drain 1% every 20s so the countdown and the 3% -> 2% drop land on
	// the same tick.
	d.Battery().ResetDrainRateToDefault()
	d.SetBatteryCharge(3)
	d.Events()

	step(d, clk, 20)

	if d.IsPowered() {
		t.Error("expected shutdown at 2%")
	}
	records := d.Records()
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(records))
	}
	if records[0].Elapsed != 20 {
		t.Errorf("expected full duration 20, got %d", records[0].Elapsed)
	}
	events := d.Events()
	ended := findEvent(events, EventSessionEnded)
	if ended == nil || ended.Reason != ReasonCompleted {
		t.Errorf("expected completed session, got %+v", ended)
	}
	if countEvents(events, EventSessionEnded) != 1 {
		t.Errorf("expected one SESSION_ENDED, got %d", countEvents(events, EventSessionEnded))
	}
}

func TestLowBatteryWarningLatch(t *testing.T) {
	d, clk := newTestDevice(t)
	d.SetBatteryCharge(6)
	d.Events()

	step(d, clk, 20)
	if d.Battery().Charge() != 5 {
		t.Fatalf("expected 5%%, got %d", d.Battery().Charge())
	}
	step(d, clk, 19)
	events := d.Events()
	if n := countEvents(events, EventLowBattery); n != 1 {
		t.Fatalf("expected one warning during the dwell at 5%%, got %d", n)
	}
	if !d.Battery().FiveWarningShown() {
		t.Error("expected latch set")
	}

	// Back up to 7%: one tick lands on 6% and clears the latch.
	d.SetBatteryCharge(7)
	step(d, clk, 1)
	if d.Battery().Charge() != 6 || d.Battery().FiveWarningShown() {
		t.Fatalf("expected 6%% with latch cleared, got %d latched=%v", d.Battery().Charge(), d.Battery().FiveWarningShown())
	}
	step(d, clk, 20)
	if n := countEvents(d.Events(), EventLowBattery); n != 1 {
		t.Errorf("expected the warning to re-arm, got %d", n)
	}
}

func TestCriticalBatteryShutsDownTherapy(t *testing.T) {
	d, clk := newTestDevice(t)
	d.SetContact(true)
	d.StartRecording()
	d.SetBatteryCharge(3)
	d.Events()

	step(d, clk, InitialTherapyDrainPeriod)

	if d.IsPowered() {
		t.Fatal("expected power off at 2%")
	}
	if d.InTherapy() {
		t.Error("expected therapy ended")
	}
	records := d.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if want := d.Session().LastDuration() - d.Session().Remaining(); records[0].Elapsed != want {
		t.Errorf("expected elapsed %d, got %d", want, records[0].Elapsed)
	}
	if records[0].Elapsed != InitialTherapyDrainPeriod {
		t.Errorf("expected elapsed %d, got %d", InitialTherapyDrainPeriod, records[0].Elapsed)
	}

	events := d.Events()
	if countEvents(events, EventCriticalBattery) != 1 {
		t.Errorf("expected CRITICAL_BATTERY, got %+v", events)
	}
	off := findEvent(events, EventPowerOff)
	if off == nil || off.Reason != ReasonBattery {
		t.Errorf("expected POWER_OFF reason battery, got %+v", off)
	}

	d.TogglePower()
	if d.IsPowered() {
		t.Error("power on must be refused at 2%")
	}
	step(d, clk, 100)
	if d.Battery().Charge() != 2 {
		t.Errorf("battery drained while off: %d", d.Battery().Charge())
	}
}

func TestDisableWhileTreating(t *testing.T) {
	d, clk := newTestDevice(t)
	d.SetContact(true)
	d.StartRecording()
	step(d, clk, 42)

	d.SetDisabled(true)

	if d.IsPowered() || !d.IsDisabled() {
		t.Fatalf("expected powered=false disabled=true, got %+v", d.Snapshot())
	}
	if d.InTherapy() {
		t.Error("expected therapy ended")
	}
	records := d.Records()
	if len(records) != 1 || records[0].Elapsed != 42 {
		t.Fatalf("expected one record of 42s, got %+v", records)
	}

	d.TogglePower()
	if d.IsPowered() {
		t.Error("disabled device must not power on")
	}

	d.IncreasePower()
	d.SetDisabled(false)
	if d.IsDisabled() {
		t.Error("expected enabled")
	}
	if d.IsPowered() {
		t.Error("enabling must not power the device on")
	}
	if d.Battery().DrainPeriod() != SlowestDrainPeriod {
		t.Errorf("expected default drain after enable, got %d", d.Battery().DrainPeriod())
	}

	d.TogglePower()
	if !d.IsPowered() {
		t.Error("expected power on after enable")
	}
}

func TestPowerOffDuringTherapy(t *testing.T) {
	d, clk := newTestDevice(t)
	d.SelectTherapyTime(Therapy40Min)
	d.SetContact(true)
	d.ToggleRecording()
	step(d, clk, 100)

	d.TogglePower()

	if d.IsPowered() || d.InTherapy() {
		t.Fatalf("expected off and idle, got %+v", d.Snapshot())
	}
	records := d.Records()
	if len(records) != 1 || records[0].Elapsed != 100 {
		t.Fatalf("expected record of 100s, got %+v", records)
	}
	if d.SkinContact() {
		t.Error("power off during therapy should drop contact")
	}
	if d.Session().Clock().Active() {
		t.Error("session clock should be stopped")
	}
}

func TestInactivityPowersOff(t *testing.T) {
	d, clk := newDeviceWithConfig(t, DefaultConfig())

	step(d, clk, 29)
	if !d.IsPowered() {
		t.Fatal("powered off too early")
	}
	if d.InactiveSeconds() != 29*60 {
		t.Errorf("expected %d inactive seconds, got %d", 29*60, d.InactiveSeconds())
	}
	step(d, clk, 1)
	if d.IsPowered() {
		t.Fatal("expected inactivity power off at 1800s")
	}
	off := findEvent(d.Events(), EventPowerOff)
	if off == nil || off.Reason != ReasonInactivity {
		t.Errorf("expected POWER_OFF reason inactivity, got %+v", off)
	}
}

func TestInactivityPausedDuringTherapy(t *testing.T) {
	d, clk := newDeviceWithConfig(t, DefaultConfig())
	step(d, clk, 10)
	d.SetContact(true)
	if d.InactiveSeconds() != 0 {
		t.Errorf("therapy start should reset inactivity, got %d", d.InactiveSeconds())
	}
	step(d, clk, 100)
	if !d.IsPowered() || d.InactiveSeconds() != 0 {
		t.Errorf("inactivity accrued during therapy: %d", d.InactiveSeconds())
	}
}

func TestUserInteractionResetsInactivity(t *testing.T) {
	d, clk := newDeviceWithConfig(t, DefaultConfig())
	for i := 0; i < 5; i++ {
		step(d, clk, 20)
		d.ResetInactivity()
	}
	if !d.IsPowered() {
		t.Error("interaction should keep the device on")
	}
	d.BumpInactivity()
	if d.InactiveSeconds() != 60 {
		t.Errorf("expected one bump of 60s, got %d", d.InactiveSeconds())
	}
}

func TestPowerAdjustment(t *testing.T) {
	d, _ := newTestDevice(t)
	d.SetContact(true)

	for i := 0; i < 12; i++ {
		d.IncreasePower()
	}
	if d.Session().PowerLevel() != MaxPowerLevel {
		t.Errorf("expected cap %d, got %d", MaxPowerLevel, d.Session().PowerLevel())
	}
	if d.Battery().DrainPeriod() != FastestDrainPeriod {
		t.Errorf("expected fastest drain, got %d", d.Battery().DrainPeriod())
	}

	want := []int{8, 6, 4, 2, 1, 1}
	for i, w := range want {
		d.DecreasePower()
		if got := d.Session().PowerLevel(); got != w {
			t.Errorf("decrease %d: got %d, want %d", i, got, w)
		}
	}
	if d.Battery().DrainPeriod() != SlowestDrainPeriod {
		t.Errorf("expected slowest drain, got %d", d.Battery().DrainPeriod())
	}
}

func TestDecreasePowerOutsideTherapyFloorsAtZero(t *testing.T) {
	d, _ := newTestDevice(t)
	d.Session().SetPowerLevel(1)
	d.DecreasePower()
	if d.Session().PowerLevel() != 0 {
		t.Errorf("expected 0, got %d", d.Session().PowerLevel())
	}
}

func TestSelectSettings(t *testing.T) {
	d, _ := newTestDevice(t)
	d.SelectWaveform(WaveformGamma)
	d.SelectFrequency(Freq77Hz)
	d.SelectTherapyTime(Therapy40Min)

	s := d.Session()
	if s.Waveform() != WaveformGamma || s.Frequency() != Freq77Hz {
		t.Errorf("got %s/%s", s.Waveform(), s.Frequency())
	}
	if s.Remaining() != 2400 || s.LastDuration() != 2400 {
		t.Errorf("expected 2400/2400, got %d/%d", s.Remaining(), s.LastDuration())
	}
	if e := findEvent(d.Events(), EventCountdown); e == nil || e.Remaining != 2400 {
		t.Errorf("expected COUNTDOWN 2400, got %+v", e)
	}

	d.SelectTherapyTime(TherapyTime(7))
	if s.LastDuration() != 2400 {
		t.Errorf("invalid choice changed duration to %d", s.LastDuration())
	}

	d.SetContact(true)
	if s.Remaining() != 2400 {
		t.Errorf("session should start from the selected duration, got %d", s.Remaining())
	}
}

func TestStopSessionNoopWhenIdle(t *testing.T) {
	d, _ := newTestDevice(t)
	d.StartRecording()
	d.StopSession(100)
	if len(d.Records()) != 0 || d.NextRecordNumber() != 0 {
		t.Error("stopSession outside therapy must not record")
	}
	if !d.Recording() {
		t.Error("recording flag should be untouched")
	}
}

func TestStopSessionKeepsSettings(t *testing.T) {
	d, clk := newTestDevice(t)
	d.SelectWaveform(WaveformBeta)
	d.SetContact(true)
	d.IncreasePower()
	step(d, clk, 5)

	d.StopSession(d.Session().Elapsed())

	if d.InTherapy() {
		t.Fatal("expected stopped")
	}
	if d.Session().Waveform() != WaveformBeta || d.Session().PowerLevel() != 3 {
		t.Errorf("settings should persist, got %s power %d", d.Session().Waveform(), d.Session().PowerLevel())
	}
	if d.Session().Clock().Active() {
		t.Error("clock should be stopped")
	}
}

func TestSetPowerLevelRaw(t *testing.T) {
	d, _ := newTestDevice(t)

	d.SetPowerLevelRaw(150)
	if d.Session().PowerLevel() != 3 {
		t.Errorf("expected 3, got %d", d.Session().PowerLevel())
	}
	d.SetPowerLevelRaw(600)
	if d.Session().PowerLevel() != 3 || d.IsDisabled() {
		t.Errorf("600uA should be ignored, got level %d disabled=%v", d.Session().PowerLevel(), d.IsDisabled())
	}
	d.SetPowerLevelRaw(750)
	if !d.IsDisabled() || d.IsPowered() {
		t.Errorf("over-current should disable, got %+v", d.Snapshot())
	}
	if countEvents(d.Events(), EventDisabled) != 1 {
		t.Error("expected DISABLED event")
	}
}

func TestRecordIDsAreSequential(t *testing.T) {
	d, clk := newTestDevice(t)
	for i := 0; i < 3; i++ {
		d.SetContact(true)
		d.StartRecording()
		step(d, clk, 2)
		d.TogglePower()
		d.TogglePower()
	}
	records := d.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// newest first
	for i, r := range records {
		if r.ID != 2-i {
			t.Errorf("record %d: got ID %d, want %d", i, r.ID, 2-i)
		}
	}
}

func TestTherapyImpliesPowered(t *testing.T) {
	d, clk := newTestDevice(t)
	check := func(when string) {
		t.Helper()
		if d.InTherapy() && (!d.IsPowered() || d.IsDisabled()) {
			t.Fatalf("%s: in therapy while powered=%v disabled=%v", when, d.IsPowered(), d.IsDisabled())
		}
		if d.Session().IsRunning() && !(d.IsPowered() && d.SkinContact()) {
			t.Fatalf("%s: running without power and contact", when)
		}
	}

	d.SetContact(true)
	check("contact")
	step(d, clk, 3)
	d.SetContact(false)
	check("contact lost")
	d.TogglePower()
	check("power off")
	d.TogglePower()
	d.SetContact(true)
	check("restart")
	d.SetDisabled(true)
	check("disabled")
	d.SetDisabled(false)
	d.SetBatteryCharge(3)
	d.TogglePower()
	d.SetContact(true)
	step(d, clk, 40)
	check("battery")
}

func TestIntensityResetAfterSessionEnds(t *testing.T) {
	tests := []struct {
		name string
		end  func(d *Device, clk *testClock)
	}{
		{"completed", func(d *Device, clk *testClock) {
			step(d, clk, DefaultDurationSeconds)
		}},
		{"contact timeout", func(d *Device, clk *testClock) {
			d.SetContact(false)
			step(d, clk, 5)
		}},
		{"re-enabled", func(d *Device, clk *testClock) {
			d.SetDisabled(true)
			d.SetDisabled(false)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, clk := newTestDevice(t)
			d.SetContact(true)
			d.SetPowerLevelRaw(450)
			if d.Session().PowerLevel() != 9 {
				t.Fatalf("setup: power level = %d, want 9", d.Session().PowerLevel())
			}

			tt.end(d, clk)

			if d.InTherapy() {
				t.Fatal("therapy should have ended")
			}
			if got := d.Session().PowerLevel(); got != InitialTherapyPower {
				t.Errorf("power level = %d, want %d", got, InitialTherapyPower)
			}
		})
	}
}

func TestUserStopKeepsIntensity(t *testing.T) {
	d, _ := newTestDevice(t)
	d.SetContact(true)
	d.IncreasePower()
	d.IncreasePower()

	d.StopSession(d.Session().Elapsed())

	if got := d.Session().PowerLevel(); got != 4 {
		t.Errorf("power level = %d, want 4", got)
	}
}
