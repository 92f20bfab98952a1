package domain

import "testing"

func TestJobStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusIdle, false},
		{JobStatusRunning, false},
		{JobStatusDone, true},
		{JobStatusError, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("expected IsTerminal()=%t for %s, got %t", tt.terminal, tt.status, got)
			}
		})
	}
}

func TestJobStatus_Values(t *testing.T) {
	if JobStatusIdle != "idle" || JobStatusRunning != "running" ||
		JobStatusDone != "done" || JobStatusError != "error" {
		t.Error("job status values must match the status API")
	}
}
