package imagegen

import (
	"context"
	"fmt"
	"time"

	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/pkg/logger"
)

const (
	DefaultPollInterval = 1 * time.Second
	DefaultPollTimeout  = 60 * time.Second
)

// StatusFunc fetches the current state of an asynchronous generation
// task.
type StatusFunc func(ctx context.Context, requestID string) (map[string]any, error)

// Poller drives an asynchronous task to a terminal state. Status
// checks run strictly sequentially against a wall-clock deadline
// computed once at the start.
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration
	Logger   *logger.Logger

	// Sleep is overridable in tests; nil means a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Poll calls status until the task succeeds, fails, or the deadline
// passes. Transport errors from status are fatal and returned
// unchanged; a deadline expiry is reported like a task failure but
// with a distinct message.
func (p *Poller) Poll(ctx context.Context, requestID string, status StatusFunc) (map[string]any, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		if time.Now().After(deadline) {
			return nil, httpx.NewError(httpx.CodeTaskFailed,
				fmt.Sprintf("generation task %s timed out after %v", requestID, timeout),
				map[string]any{"request_id": requestID, "reason": "timeout"})
		}

		data, err := status(ctx, requestID)
		if err != nil {
			return nil, err
		}

		state, _ := data["status"].(string)
		p.Logger.Trace("task %s status %q (check %d)", requestID, state, attempt)

		switch state {
		case "processing":
			if err := sleep(ctx, interval); err != nil {
				return nil, httpx.NewError(httpx.CodeNetwork, err.Error(), nil)
			}
		case "success":
			return data, nil
		case "failed":
			return nil, httpx.NewError(httpx.CodeTaskFailed,
				fmt.Sprintf("generation task %s failed", requestID),
				map[string]any{"request_id": requestID, "response": data})
		default:
			return nil, httpx.NewError(httpx.CodeTaskFailed,
				fmt.Sprintf("generation task %s reported unknown status %q", requestID, state),
				map[string]any{"request_id": requestID, "response": data})
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
