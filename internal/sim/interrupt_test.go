package sim

import (
	"errors"
	"fmt"
	"os/exec"
	"testing"
)

func TestChildInterrupted(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{"killed by SIGTERM", "kill -TERM $$", true},
		{"shell reports SIGINT", "exit 130", true},
		{"ordinary failure", "exit 1", false},
		{"success", "true", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exec.Command("/bin/sh", "-c", tt.script).Run()
			wrapped := fmt.Errorf("qsub failed for Sim/1: %w", err)
			if got := ChildInterrupted(wrapped); got != tt.want {
				t.Errorf("ChildInterrupted(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}
}

func TestChildInterruptedOtherErrors(t *testing.T) {
	if ChildInterrupted(nil) {
		t.Error("nil error reported as interrupted")
	}
	if ChildInterrupted(errors.New("exit status 130")) {
		t.Error("plain error reported as interrupted")
	}
}
