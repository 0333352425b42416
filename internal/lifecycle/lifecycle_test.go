package lifecycle

import "testing"

func TestSetShuttingDown(t *testing.T) {
	SetShuttingDown(true)
	defer SetShuttingDown(false)
	if !IsShuttingDown() {
		t.Error("IsShuttingDown() = false after SetShuttingDown(true), want true")
	}
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true after SetShuttingDown(false), want false")
	}
}

func TestReady_DefaultFalse(t *testing.T) {
	SetReady(false)
	if IsReady() {
		t.Error("IsReady() = true, want false before warm")
	}
	SetReady(true)
	defer SetReady(false)
	if !IsReady() {
		t.Error("IsReady() = false after SetReady(true)")
	}
}
