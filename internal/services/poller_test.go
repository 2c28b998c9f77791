package services

import (
	"testing"
	"time"
)

func TestDelayForClampsToLadder(t *testing.T) {
	poller := &StatusPoller{delays: defaultCheckDelays}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Minute},
		{1, 5 * time.Minute},
		{2, 30 * time.Minute},
		{3, 2 * time.Hour},
		{4, 24 * time.Hour},
		{5, 24 * time.Hour},
		{100, 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := poller.delayFor(tt.attempt); got != tt.want {
			t.Errorf("delayFor(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
