package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestBackoffDelaySchedule(t *testing.T) {
	b := Backoff{Base: 2 * time.Second, Factor: 2, Attempts: 5}
	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
	}
	for i, w := range want {
		if got := b.Delay(i); got != w {
			t.Fatalf("delay(%d) = %s, want %s", i, got, w)
		}
	}
}

func TestBackoffDelayDefaultsFactor(t *testing.T) {
	b := Backoff{Base: time.Second}
	if got := b.Delay(1); got != 2*time.Second {
		t.Fatalf("delay(1) = %s, want 2s with default factor", got)
	}
	if got := b.Delay(-3); got != time.Second {
		t.Fatalf("negative attempt should clamp, got %s", got)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("sleep did not return promptly on cancel")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"net timeout", timeoutErr{}, true},
		{"wrapped net timeout", fmt.Errorf("poll: %w", timeoutErr{}), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"upstream 5xx", errors.New("analysis service http status 503"), true},
		{"not found", errors.New("analyzer not found"), false},
		{"validation", errors.New("MissingGenerationMethod at fields.x"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Transient(tc.err); got != tc.want {
				t.Fatalf("Transient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
