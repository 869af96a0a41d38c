package logic

import "testing"

func TestNewBattery(t *testing.T) {
	b := NewBattery()
	if b.Charge() != 100 {
		t.Errorf("expected charge 100, got %d", b.Charge())
	}
	if b.DrainPeriod() != SlowestDrainPeriod {
		t.Errorf("expected drain period %d, got %d", SlowestDrainPeriod, b.DrainPeriod())
	}
	if b.FiveWarningShown() {
		t.Error("new battery should not have the 5% warning latched")
	}
}

func TestDepleteOnePercentPerPeriod(t *testing.T) {
	for _, period := range []int{10, 14, 18, 20} {
		b := NewBattery()
		b.drainPeriod = period

		for i := 0; i < period-1; i++ {
			b.Deplete()
		}
		if b.Charge() != 100 {
			t.Errorf("period %d: charge dropped early to %d", period, b.Charge())
		}
		b.Deplete()
		if b.Charge() != 99 {
			t.Errorf("period %d: expected 99 after %d ticks, got %d", period, period, b.Charge())
		}
	}
}

func TestDepleteNonIncreasingAndBounded(t *testing.T) {
	b := NewBattery()
	b.SetCharge(3)
	prev := b.Charge()
	for i := 0; i < 200; i++ {
		if i%7 == 0 {
			b.IncreaseDrainRate()
		}
		if i%11 == 0 {
			b.DecreaseDrainRate()
		}
		b.Deplete()
		c := b.Charge()
		if c > prev {
			t.Fatalf("tick %d: charge increased from %d to %d", i, prev, c)
		}
		if c < 0 || c > 100 {
			t.Fatalf("tick %d: charge out of range: %d", i, c)
		}
		prev = c
	}
	if b.Charge() != 0 {
		t.Errorf("expected battery to reach 0, got %d", b.Charge())
	}
}

func TestDepleteDoesNotRescaleAccumulator(t *testing.T) {
	b := NewBattery()
	for i := 0; i < 15; i++ {
		b.Deplete()
	}
	// 15 ticks accumulated against a 20s period; dropping to 10s means the
	// very next tick crosses the threshold.
	b.drainPeriod = FastestDrainPeriod
	b.Deplete()
	if b.Charge() != 99 {
		t.Errorf("expected 99, got %d", b.Charge())
	}
	if b.ticks != 0 {
		t.Errorf("expected accumulator reset, got %d", b.ticks)
	}
}

func TestDrainRateBounds(t *testing.T) {
	b := NewBattery()
	for i := 0; i < 30; i++ {
		b.IncreaseDrainRate()
	}
	if b.DrainPeriod() != FastestDrainPeriod {
		t.Errorf("expected floor %d, got %d", FastestDrainPeriod, b.DrainPeriod())
	}
	for i := 0; i < 30; i++ {
		b.DecreaseDrainRate()
	}
	if b.DrainPeriod() != SlowestDrainPeriod {
		t.Errorf("expected cap %d, got %d", SlowestDrainPeriod, b.DrainPeriod())
	}
}

func TestDrainRateAsymmetricSteps(t *testing.T) {
	tests := []struct {
		start, afterIncrease, afterDecrease int
	}{
		{20, 19, 20},
		{14, 13, 15},
		{10, 10, 12},
		{19, 18, 20},
	}
	for _, tt := range tests {
		b := NewBattery()
		b.drainPeriod = tt.start
		b.IncreaseDrainRate()
		if b.DrainPeriod() != tt.afterIncrease {
			t.Errorf("from %d: increase gave %d, want %d", tt.start, b.DrainPeriod(), tt.afterIncrease)
		}
		b.DecreaseDrainRate()
		if b.DrainPeriod() != tt.afterDecrease {
			t.Errorf("from %d: decrease gave %d, want %d", tt.start, b.DrainPeriod(), tt.afterDecrease)
		}
	}
}

func TestDrainRatePresets(t *testing.T) {
	b := NewBattery()
	b.SetInitialTherapyDrainRate()
	if b.DrainPeriod() != InitialTherapyDrainPeriod {
		t.Errorf("expected %d, got %d", InitialTherapyDrainPeriod, b.DrainPeriod())
	}
	b.ResetDrainRateToDefault()
	if b.DrainPeriod() != SlowestDrainPeriod {
		t.Errorf("expected %d, got %d", SlowestDrainPeriod, b.DrainPeriod())
	}
}

func TestDepleteFloorsAtZero(t *testing.T) {
	b := NewBattery()
	b.SetCharge(0)
	for i := 0; i < 3*SlowestDrainPeriod; i++ {
		b.Deplete()
	}
	if b.Charge() != 0 {
		t.Errorf("expected 0, got %d", b.Charge())
	}
}
