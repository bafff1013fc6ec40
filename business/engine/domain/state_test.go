package domain

import "testing"

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to ExecutionState
		want     bool
	}{
		{StateIdle, StateMonitoring, true},
		{StateIdle, StateVerifying, false},
		{StateIdle, StateCommitting, false},
		{StateIdle, StateSettled, false},
		{StateMonitoring, StateVerifying, true},
		{StateMonitoring, StateIdle, true},
		{StateMonitoring, StateCommitting, false},
		{StateVerifying, StateCommitting, true},
		{StateVerifying, StateMonitoring, true},
		{StateVerifying, StateIdle, true},
		{StateCommitting, StateSettled, true},
		{StateCommitting, StateAborted, true},
		{StateCommitting, StateIdle, false},
		{StateSettled, StateMonitoring, true},
		{StateSettled, StateIdle, true},
		{StateAborted, StateIdle, true},
		{StateAborted, StateMonitoring, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
