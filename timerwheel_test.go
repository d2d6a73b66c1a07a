package muduo

import "testing"

func TestTimeWheelFiresAfterNTicks(t *testing.T) {
	tw := NewTimeWheel(8)
	fired := false
	if err := tw.Add(1, 3, func() { fired = true }); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for i := 0; i < 2; i++ {
		if n := tw.Tick(); n != 0 {
			t.Fatalf("tick %d fired %d actions, want 0", i, n)
		}
	}
	if fired {
		t.Fatal("fired too early")
	}
	if n := tw.Tick(); n != 1 {
		t.Fatalf("final tick fired %d actions, want 1", n)
	}
	if !fired {
		t.Fatal("action never ran")
	}
}

func TestTimeWheelRejectsOutOfRangeDuration(t *testing.T) {
	tw := NewTimeWheel(4)
	if err := tw.Add(1, 0, func() {}); err != ErrTimeoutOutOfRange {
		t.Fatalf("Add(d=0) = %v, want ErrTimeoutOutOfRange", err)
	}
	if err := tw.Add(1, 4, func() {}); err != ErrTimeoutOutOfRange {
		t.Fatalf("Add(d=W) = %v, want ErrTimeoutOutOfRange", err)
	}
}

func TestTimeWheelRejectsDuplicateID(t *testing.T) {
	tw := NewTimeWheel(8)
	if err := tw.Add(1, 2, func() {}); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := tw.Add(1, 3, func() {}); err != ErrDuplicateTimerID {
		t.Fatalf("second Add = %v, want ErrDuplicateTimerID", err)
	}
}

func TestTimeWheelCancelSuppressesAction(t *testing.T) {
	tw := NewTimeWheel(4)
	fired := false
	tw.Add(1, 1, func() { fired = true })
	if !tw.Has(1) {
		t.Fatal("Has must report true right after Add")
	}
	tw.Cancel(1)
	if tw.Has(1) {
		t.Fatal("Has must report false after Cancel")
	}
	if n := tw.Tick(); n != 0 {
		t.Fatalf("tick after cancel fired %d actions, want 0", n)
	}
	if fired {
		t.Fatal("canceled action must not run")
	}
}

func TestTimeWheelRefreshDiscardsStaleBucketEntry(t *testing.T) {
	tw := NewTimeWheel(8)
	calls := 0
	// Add schedules 3 ticks out; one tick later, Refresh re-arms it for
	// another 3 ticks from *that* point, reusing the task's own
	// remembered duration rather than a caller-supplied one.
	tw.Add(1, 3, func() { calls++ })
	if n := tw.Tick(); n != 0 {
		t.Fatalf("tick 1 fired %d, want 0", n)
	}
	if err := tw.Refresh(1); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// the original 3-tick bucket entry is now stale: ticking to it must
	// not fire the action, since index[1] points at the refreshed clone.
	if n := tw.Tick(); n != 0 {
		t.Fatalf("tick 2 fired %d, want 0", n)
	}
	if n := tw.Tick(); n != 0 {
		t.Fatalf("tick 3 fired %d, want 0 (stale entry must be discarded)", n)
	}
	if n := tw.Tick(); n != 1 {
		t.Fatalf("tick 4 fired %d, want 1", n)
	}
	if calls != 1 {
		t.Fatalf("action ran %d times, want exactly 1", calls)
	}
}

func TestTimeWheelRefreshOnUnknownIDIsNoOp(t *testing.T) {
	tw := NewTimeWheel(4)
	if err := tw.Refresh(99); err != nil {
		t.Fatalf("Refresh on unknown id = %v, want nil", err)
	}
}

func TestTimeWheelMinimumTwoBuckets(t *testing.T) {
	tw := NewTimeWheel(1)
	if tw.w != 2 {
		t.Fatalf("w = %d, want floor of 2", tw.w)
	}
}
