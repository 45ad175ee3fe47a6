package sentry

import (
	"errors"
	"fmt"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestShouldIgnore(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"timeout", timeoutErr{}, true},
		{"reset", fmt.Errorf("read: %w", errors.New("connection reset by peer")), true},
		{"no sni", errors.New("acme/autocert: missing server name"), true},
		{"database", errors.New("database is locked"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldIgnore(tt.err); got != tt.want {
				t.Errorf("shouldIgnore(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestInit_EmptyDSNDisabled(t *testing.T) {
	enabled, err := Init("", "test", "dev")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if enabled {
		t.Error("Init() with empty DSN should report disabled")
	}
}
