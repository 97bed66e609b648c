package content

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryPolicy_Run(t *testing.T) {
	errTransient := errors.New("busy")
	errFatal := errors.New("fatal")
	retryable := func(err error) bool { return errors.Is(err, errTransient) }

	tests := []struct {
		name          string
		results       []error
		wantAttempts  int
		wantExhausted bool
		wantErr       error
	}{
		{name: "first try", results: []error{nil}, wantAttempts: 1},
		{name: "recovers", results: []error{errTransient, nil}, wantAttempts: 2},
		{name: "fatal stops", results: []error{errTransient, errFatal}, wantAttempts: 2, wantErr: errFatal},
		{
			name:          "exhausted",
			results:       []error{errTransient, errTransient, errTransient},
			wantAttempts:  3,
			wantExhausted: true,
			wantErr:       errTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}
			var waits []time.Duration
			calls := 0

			attempts, exhausted, err := p.run(context.Background(), retryable,
				func(attempt int, wait time.Duration, err error) { waits = append(waits, wait) },
				func(ctx context.Context) error {
					err := tt.results[calls]
					calls++
					return err
				},
			)

			if attempts != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, attempts)
			}
			if exhausted != tt.wantExhausted {
				t.Errorf("expected exhausted=%v, got %v", tt.wantExhausted, exhausted)
			}
			if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
			for i, wait := range waits {
				if want := p.Delay(i + 1); wait != want {
					t.Errorf("wait %d: expected %v, got %v", i, want, wait)
				}
			}
		})
	}
}

func TestRetryPolicy_RunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{Attempts: 3, BaseDelay: time.Hour}

	calls := 0
	_, _, err := p.run(ctx, func(error) bool { return true },
		func(int, time.Duration, error) { cancel() },
		func(ctx context.Context) error {
			calls++
			return errors.New("busy")
		},
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no attempt after cancellation, got %d calls", calls)
	}
}
