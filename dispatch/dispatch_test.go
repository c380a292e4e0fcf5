package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/modelship/cadbridge"
)

func okResult(cmd cadbridge.Command) cadbridge.Result {
	return cadbridge.Result{CommandID: cmd.ID}
}

func TestFIFOOrder(t *testing.T) {
	q := New()

	const n = 20
	for i := 0; i < n; i++ {
		if _, err := q.Enqueue(cadbridge.Command{ID: int64(i)}); err != nil {
			t.Fatal(err)
		}
	}

	var seen []int64
	for q.DrainOne(func(cmd cadbridge.Command) cadbridge.Result {
		seen = append(seen, cmd.ID)
		return okResult(cmd)
	}) {
	}

	if len(seen) != n {
		t.Fatalf("expected %d executed, got %d", n, len(seen))
	}
	for i, id := range seen {
		if id != int64(i) {
			t.Fatalf("order broken at %d: got id %d", i, id)
		}
	}
}

func TestDrainOneExecutesExactlyOne(t *testing.T) {
	q := New()
	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(cadbridge.Command{ID: int64(i)}); err != nil {
			t.Fatal(err)
		}
	}

	executed := 0
	count := func(cmd cadbridge.Command) cadbridge.Result {
		executed++
		return okResult(cmd)
	}

	if more := q.DrainOne(count); !more {
		t.Error("expected more work after first drain")
	}
	if executed != 1 {
		t.Fatalf("expected 1 executed, got %d", executed)
	}
	if more := q.DrainOne(count); !more {
		t.Error("expected more work after second drain")
	}
	if more := q.DrainOne(count); more {
		t.Error("expected no more work after third drain")
	}
	if q.DrainOne(count) {
		t.Error("drain on empty queue should report no work")
	}
	if executed != 3 {
		t.Fatalf("expected 3 executed, got %d", executed)
	}
}

func TestEnqueueFromManyGoroutines(t *testing.T) {
	q := New()

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := q.Enqueue(cadbridge.Command{ID: int64(w*perWorker + i)}); err != nil {
					t.Errorf("enqueue failed: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	executed := 0
	for q.DrainOne(func(cmd cadbridge.Command) cadbridge.Result {
		executed++
		return okResult(cmd)
	}) {
	}
	if executed != workers*perWorker {
		t.Errorf("expected %d executed, got %d", workers*perWorker, executed)
	}
}

func TestWaitDeliversResult(t *testing.T) {
	q := New()
	pending, err := q.Enqueue(cadbridge.Command{ID: 5})
	if err != nil {
		t.Fatal(err)
	}

	go q.DrainOne(func(cmd cadbridge.Command) cadbridge.Result {
		return cadbridge.Result{CommandID: cmd.ID, Stdout: "hello\n"}
	})

	res, err := pending.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.CommandID != 5 || res.Stdout != "hello\n" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestShutdownResolvesPending(t *testing.T) {
	q := New()

	var pendings []*Pending
	for i := 0; i < 3; i++ {
		p, err := q.Enqueue(cadbridge.Command{ID: int64(i)})
		if err != nil {
			t.Fatal(err)
		}
		pendings = append(pendings, p)
	}

	q.Shutdown()

	for i, p := range pendings {
		res, err := p.Wait(context.Background())
		if err != nil {
			t.Fatalf("pending %d: %v", i, err)
		}
		if res.Err == nil || res.Err.Kind != cadbridge.KindShutdownError {
			t.Errorf("pending %d: expected ShutdownError, got %+v", i, res.Err)
		}
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := New()
	q.Shutdown()

	_, err := q.Enqueue(cadbridge.Command{ID: 1})
	if err == nil {
		t.Fatal("expected error enqueueing after shutdown")
	}
	var bridgeErr *cadbridge.Error
	if !errors.As(err, &bridgeErr) || bridgeErr.Kind != cadbridge.KindBridgeClosed {
		t.Errorf("expected BridgeClosed, got %v", err)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	q := New()
	q.Shutdown()
	q.Shutdown() // must not panic or deadlock
}

func TestWaitContextCancel(t *testing.T) {
	q := New()
	pending, err := q.Enqueue(cadbridge.Command{ID: 1})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pending.Wait(ctx); err == nil {
		t.Fatal("expected error from cancelled wait")
	}

	// Abandoning the waiter must not block the drain side.
	done := make(chan struct{})
	go func() {
		q.DrainOne(okResult)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain blocked on abandoned waiter")
	}
}

func TestLoopDrainsAndShutsDown(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())

	loopDone := make(chan struct{})
	go func() {
		Loop(ctx, q, okResult, time.Millisecond)
		close(loopDone)
	}()

	pending, err := q.Enqueue(cadbridge.Command{ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	res, err := pending.Wait(waitCtx)
	if err != nil {
		t.Fatalf("loop never drained: %v", err)
	}
	if !res.OK() {
		t.Errorf("unexpected error result: %+v", res.Err)
	}

	cancel()
	select {
	case <-loopDone:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit on cancel")
	}

	if _, err := q.Enqueue(cadbridge.Command{ID: 2}); err == nil {
		t.Error("expected queue closed after loop exit")
	}
}
