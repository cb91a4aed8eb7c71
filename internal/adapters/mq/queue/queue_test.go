package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/clerb/internal/domain/model"
)

func job(book string) model.ColorJob {
	return model.ColorJob{BookID: book, ImageURL: "https://img.example/" + book + ".jpg"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(ctx, job("b1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.BookID != "b1" {
		t.Errorf("expected b1, got %v", got.BookID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if err := q.Enqueue(ctx, job("b1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}
	if err := q.Enqueue(ctx, job("b2")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}
	if err := q.Enqueue(ctx, job("b3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}

	// A rejected job does not stay pending.
	<-q.Dequeue(ctx)
	if err := q.Enqueue(ctx, job("b3")); err != nil {
		t.Errorf("expected b3 to fit after a dequeue, got %v", err)
	}
}

func TestInMemoryQueue_Duplicates(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, job("b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Enqueue(ctx, job("b1")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	other := model.ColorJob{BookID: "b1", ImageURL: "https://img.example/other.jpg"}
	if err := q.Enqueue(ctx, other); err != nil {
		t.Errorf("a different image for the same book is a different job, got %v", err)
	}

	j := <-q.Dequeue(ctx)
	q.Done(ctx, j)
	if err := q.Enqueue(ctx, job("b1")); err != nil {
		t.Errorf("expected enqueue after Done to succeed, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	numProducers := 10
	numJobs := 100

	var consumed sync.WaitGroup
	consumed.Add(numProducers * numJobs)
	for i := 0; i < 4; i++ {
		go func() {
			for j := range q.Dequeue(ctx) {
				q.Done(ctx, j)
				consumed.Done()
			}
		}()
	}

	var producers sync.WaitGroup
	for i := 0; i < numProducers; i++ {
		producers.Add(1)
		go func(id int) {
			defer producers.Done()
			for n := 0; n < numJobs; n++ {
				j := job(fmt.Sprintf("book%d_%d", id, n))
				for q.Enqueue(ctx, j) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}
	producers.Wait()

	done := make(chan struct{})
	go func() {
		consumed.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumers did not drain the queue")
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, job("b1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, job("b2")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Queued jobs drain before the channel closes.
	jobs := q.Dequeue(ctx)
	timeout := time.After(time.Second)
	var drained []string
	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				if len(drained) != 1 || drained[0] != "b1" {
					t.Errorf("expected to drain [b1], got %v", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained = append(drained, j.BookID)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
