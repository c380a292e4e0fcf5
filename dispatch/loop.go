package dispatch

import (
	"context"
	"time"

	"github.com/modelship/cadbridge"
)

// Loop drains the queue at the given tick interval until ctx is done,
// standing in for the host application's idle callback. When DrainOne reports
// more work, the next drain happens immediately instead of waiting a full
// tick. On exit the queue is shut down, resolving queued work with
// ShutdownError.
func Loop(ctx context.Context, q *Queue, run func(cadbridge.Command) cadbridge.Result, tick time.Duration) {
	defer q.Shutdown()

	timer := time.NewTimer(tick)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		for q.DrainOne(run) {
			// Re-check shutdown between entries so a long backlog
			// cannot delay teardown indefinitely.
			if ctx.Err() != nil {
				return
			}
		}
		timer.Reset(tick)
	}
}
