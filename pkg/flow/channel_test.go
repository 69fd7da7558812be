package flow

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestEventChannelFIFO(t *testing.T) {
	ch := NewEventChannel[int]()
	for i := 0; i < 5; i++ {
		if !ch.Push(i) {
			t.Fatalf("Push(%d) = false, want true", i)
		}
	}
	ch.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		got, err := ch.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if got != i {
			t.Errorf("Next() = %d, want %d", got, i)
		}
	}

	if _, err := ch.Next(ctx); err != ErrChannelDrained {
		t.Errorf("Next() after drain error = %v, want ErrChannelDrained", err)
	}
	if !ch.IsDrained() {
		t.Error("IsDrained() = false, want true")
	}
}

func TestEventChannelGlobalOrderAcrossProducers(t *testing.T) {
	// Producers coordinate through a mutex-guarded counter so each
	// pushed value records its global arrival position; the consumer
	// must see them in exactly that order.
	ch := NewEventChannel[int]()
	const producers = 8
	const perProducer = 100

	var seq int
	var seqMu sync.Mutex
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				seqMu.Lock()
				v := seq
				seq++
				ch.Push(v)
				seqMu.Unlock()
			}
		}()
	}

	go func() {
		wg.Wait()
		ch.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var received []int
	for {
		v, err := ch.Next(ctx)
		if err == ErrChannelDrained {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		received = append(received, v)
	}

	if len(received) != producers*perProducer {
		t.Fatalf("received %d events, want %d", len(received), producers*perProducer)
	}
	for i, v := range received {
		if v != i {
			t.Fatalf("received[%d] = %d, want %d (events reordered)", i, v, i)
		}
	}
	if !ch.IsDrained() {
		t.Error("IsDrained() = false after full drain")
	}
}

func TestEventChannelPushAfterClose(t *testing.T) {
	ch := NewEventChannel[string]()
	ch.Push("kept")
	ch.Close()
	ch.Close() // idempotent

	if ch.Push("dropped") {
		t.Error("Push after Close = true, want false")
	}
	if ch.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ch.Len())
	}
	if ch.IsDrained() {
		t.Error("IsDrained() = true while an event is still buffered")
	}

	got, err := ch.Next(context.Background())
	if err != nil || got != "kept" {
		t.Errorf("Next() = %q, %v, want %q, nil", got, err, "kept")
	}
	if !ch.IsDrained() {
		t.Error("IsDrained() = false after draining")
	}
}

func TestEventChannelNextBlocksUntilPush(t *testing.T) {
	ch := NewEventChannel[int]()

	go func() {
		time.Sleep(20 * time.Millisecond)
		ch.Push(42)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := ch.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Next() = %d, want 42", got)
	}
}

func TestEventChannelNextHonorsContext(t *testing.T) {
	ch := NewEventChannel[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ch.Next(ctx); err != context.Canceled {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestEventChannelAll(t *testing.T) {
	ch := NewEventChannel[int]()
	for i := 0; i < 3; i++ {
		ch.Push(i)
	}
	ch.Close()

	var got []int
	ch.All(context.Background())(func(v int) bool {
		got = append(got, v)
		return true
	})

	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("All() yielded %v, want [0 1 2]", got)
	}
}
