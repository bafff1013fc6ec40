package domain

import (
	"fmt"
	"testing"

	"github.com/crossarb/crossarb/internal/apperror"
)

func TestActivityLogBounded(t *testing.T) {
	log := NewActivityLog(3)

	for i := 0; i < 5; i++ {
		log.Append(apperror.SeverityInfo, fmt.Sprintf("event %d", i))
	}

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Message != "event 2" {
		t.Errorf("oldest retained = %q, want event 2", entries[0].Message)
	}
	if entries[2].Message != "event 4" {
		t.Errorf("newest retained = %q, want event 4", entries[2].Message)
	}
}

func TestActivityLogManualFollowUp(t *testing.T) {
	log := NewActivityLog(10)
	log.Append(apperror.SeverityWarning, "fetch failed")
	log.AppendManual("sell leg failed, position un-hedged")

	entries := log.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	critical := entries[1]
	if critical.Severity != apperror.SeverityCritical {
		t.Errorf("severity = %s, want %s", critical.Severity, apperror.SeverityCritical)
	}
	if !critical.ManualFollowUp {
		t.Error("manual follow-up flag not set")
	}
	if entries[0].ManualFollowUp {
		t.Error("ordinary entry must not carry the follow-up flag")
	}
}

func TestExecutionStateCanStop(t *testing.T) {
	tests := []struct {
		state ExecutionState
		want  bool
	}{
		{StateIdle, false},
		{StateMonitoring, true},
		{StateVerifying, true},
		{StateCommitting, false},
		{StateSettled, false},
		{StateAborted, false},
	}

	for _, tt := range tests {
		if got := tt.state.CanStop(); got != tt.want {
			t.Errorf("%s.CanStop() = %v, want %v", tt.state, got, tt.want)
		}
	}
}
