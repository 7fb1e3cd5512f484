package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSlotPoolBlocksBeyondCapacity(t *testing.T) {
	p := NewSlotPool(2, quietLogger())
	ctx := context.Background()

	r1, err := p.Acquire(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := p.Acquire(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Active() != 2 {
		t.Fatalf("Active() = %d, want 2", p.Active())
	}

	acquired := make(chan func())
	go func() {
		r, err := p.Acquire(ctx, nil)
		if err != nil {
			t.Error(err)
			return
		}
		acquired <- r
	}()

	waitFor(t, "third acquirer to queue", func() bool { return p.Waiting() == 1 })
	select {
	case <-acquired:
		t.Fatal("third Acquire() succeeded while pool was full")
	case <-time.After(20 * time.Millisecond):
	}

	r1()
	r3 := <-acquired
	if p.Waiting() != 0 || p.Active() != 2 {
		t.Errorf("Waiting() = %d, Active() = %d; want 0, 2", p.Waiting(), p.Active())
	}
	r2()
	r3()
	if p.Active() != 0 {
		t.Errorf("Active() = %d after all releases, want 0", p.Active())
	}
}

func TestSlotPoolNotifiesOncePerWait(t *testing.T) {
	p := NewSlotPool(1, quietLogger())
	ctx := context.Background()

	hold, _ := p.Acquire(ctx, func(int) { t.Error("notified although a slot was free") })

	var (
		mu    sync.Mutex
		calls []int
	)
	notify := func(ahead int) {
		mu.Lock()
		calls = append(calls, ahead)
		mu.Unlock()
	}

	done := make(chan struct{}, 2)
	go func() {
		r, _ := p.Acquire(ctx, notify)
		done <- struct{}{}
		r()
	}()
	waitFor(t, "first waiter", func() bool { return p.Waiting() == 1 })
	time.Sleep(20 * time.Millisecond)

	go func() {
		r, _ := p.Acquire(ctx, notify)
		done <- struct{}{}
		r()
	}()
	waitFor(t, "second waiter", func() bool { return p.Waiting() == 2 })

	hold()
	<-done
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 || calls[0] != 0 || calls[1] != 1 {
		t.Errorf("notifications = %v, want [0 1]", calls)
	}
}

func TestSlotPoolAheadIncludesWaiterStillNotifying(t *testing.T) {
	p := NewSlotPool(1, quietLogger())
	ctx := context.Background()
	hold, _ := p.Acquire(ctx, nil)

	notifying := make(chan struct{})
	unblock := make(chan struct{})
	done := make(chan struct{}, 2)
	go func() {
		r, _ := p.Acquire(ctx, func(int) {
			close(notifying)
			<-unblock
		})
		r()
		done <- struct{}{}
	}()
	<-notifying

	got := make(chan int, 1)
	go func() {
		r, _ := p.Acquire(ctx, func(ahead int) { got <- ahead })
		r()
		done <- struct{}{}
	}()
	if ahead := <-got; ahead != 1 {
		t.Errorf("ahead = %d while first waiter is still notifying, want 1", ahead)
	}

	close(unblock)
	hold()
	<-done
	<-done
	if p.Waiting() != 0 || p.Active() != 0 {
		t.Errorf("Waiting() = %d, Active() = %d; want 0, 0", p.Waiting(), p.Active())
	}
}

func TestSlotPoolFIFO(t *testing.T) {
	p := NewSlotPool(1, quietLogger())
	ctx := context.Background()
	hold, _ := p.Acquire(ctx, nil)

	order := make(chan int, 3)
	for i := 0; i < 3; i++ {
		go func() {
			r, err := p.Acquire(ctx, nil)
			if err != nil {
				t.Error(err)
				return
			}
			order <- i
			r()
		}()
		waitFor(t, "waiter to queue", func() bool { return p.Waiting() == i+1 })
		time.Sleep(20 * time.Millisecond)
	}

	hold()
	for want := 0; want < 3; want++ {
		if got := <-order; got != want {
			t.Errorf("acquisition %d went to waiter %d", want, got)
		}
	}
}

func TestSlotPoolContextCancel(t *testing.T) {
	p := NewSlotPool(1, quietLogger())
	hold, _ := p.Acquire(context.Background(), nil)
	defer hold()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Acquire(ctx, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want %v", err, context.DeadlineExceeded)
	}
	if p.Waiting() != 0 {
		t.Errorf("Waiting() = %d after cancel, want 0", p.Waiting())
	}
	if p.Active() != 1 {
		t.Errorf("Active() = %d, want 1", p.Active())
	}
}

func TestSlotPoolReleaseIsIdempotent(t *testing.T) {
	p := NewSlotPool(1, quietLogger())
	r, _ := p.Acquire(context.Background(), nil)
	r()
	r()
	if p.Active() != 0 {
		t.Errorf("Active() = %d, want 0", p.Active())
	}

	// A double release must not have created a second slot.
	a, _ := p.Acquire(context.Background(), nil)
	defer a()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx, nil); err == nil {
		t.Error("pool of one handed out two slots")
	}
}

func TestSlotPoolDefaultCapacity(t *testing.T) {
	if got := NewSlotPool(0, nil).Capacity(); got != DefaultMaxConcurrency {
		t.Errorf("Capacity() = %d, want %d", got, DefaultMaxConcurrency)
	}
}
