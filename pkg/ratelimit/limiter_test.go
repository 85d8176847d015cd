package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/vnykmshr/taskflow/internal/testutil"
)

func TestNewLocalWindowValidation(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		window time.Duration
	}{
		{"zero limit", 0, time.Second},
		{"negative limit", -1, time.Second},
		{"zero window", 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			NewLocalWindow(tt.limit, tt.window)
		})
	}
}

func TestLocalWindowAllow(t *testing.T) {
	lim := NewLocalWindow(3, time.Hour)

	for i := 0; i < 3; i++ {
		testutil.AssertEqual(t, lim.Allow(), true)
	}
	testutil.AssertEqual(t, lim.Allow(), false)
}

func TestLocalWindowRollover(t *testing.T) {
	lim := NewLocalWindow(1, 30*time.Millisecond)

	testutil.AssertEqual(t, lim.Allow(), true)
	testutil.AssertEqual(t, lim.Allow(), false)

	time.Sleep(40 * time.Millisecond)
	testutil.AssertEqual(t, lim.Allow(), true)
}

func TestLocalWindowWait(t *testing.T) {
	lim := NewLocalWindow(1, 20*time.Millisecond)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	testutil.AssertNoError(t, lim.Wait(ctx))

	// Second admission must wait for the next window, not fail.
	start := time.Now()
	testutil.AssertNoError(t, lim.Wait(ctx))
	if time.Since(start) < 5*time.Millisecond {
		t.Error("second Wait should have blocked into the next window")
	}
}

func TestLocalWindowWaitCancelled(t *testing.T) {
	lim := NewLocalWindow(1, time.Hour)
	testutil.AssertEqual(t, lim.Allow(), true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	testutil.AssertError(t, lim.Wait(ctx))
}
