package clock

import (
	"testing"
	"time"
)

func TestFakeAdvanceFiresDueTimers(t *testing.T) {
	start := time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var fired []string
	c.AfterFunc(30*time.Minute, func() { fired = append(fired, "late") })
	c.AfterFunc(10*time.Minute, func() { fired = append(fired, "early") })

	c.Advance(5 * time.Minute)
	if len(fired) != 0 {
		t.Fatalf("fired too early: %v", fired)
	}
	if c.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", c.Pending())
	}
	if d := c.Deadlines(); len(d) != 2 || !d[1].Equal(start.Add(10*time.Minute)) {
		t.Fatalf("Deadlines = %v", d)
	}

	c.Advance(time.Hour)
	if len(fired) != 2 || fired[0] != "early" || fired[1] != "late" {
		t.Fatalf("fired = %v, want [early late]", fired)
	}
	if !c.Now().Equal(start.Add(65 * time.Minute)) {
		t.Fatalf("Now = %v", c.Now())
	}
}

func TestFakeStopIsIdempotent(t *testing.T) {
	c := NewFake(time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC))
	called := false
	timer := c.AfterFunc(time.Minute, func() { called = true })

	if !timer.Stop() {
		t.Fatal("first Stop should report true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should report false")
	}
	c.Advance(time.Hour)
	if called {
		t.Fatal("stopped timer fired")
	}

	fired := c.AfterFunc(time.Minute, func() {})
	c.Advance(time.Minute)
	if fired.Stop() {
		t.Fatal("Stop after firing should report false")
	}
}

func TestFakeNonPositiveDelayFiresImmediately(t *testing.T) {
	c := NewFake(time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC))
	called := false
	c.AfterFunc(0, func() { called = true })
	if !called {
		t.Fatal("zero delay timer did not fire")
	}
}
