package checker

import (
	"testing"
	"time"
)

func TestWorkQueueOrdersByNextCheck(t *testing.T) {
	q := newWorkQueue()
	later := CheckRequest{NextCheck: time.Now().Add(time.Hour), Hyperlink: &Hyperlink{URI: "later"}}
	sooner := CheckRequest{NextCheck: time.Now(), Hyperlink: &Hyperlink{URI: "sooner"}}
	q.Push(later)
	q.Push(sooner)

	first := q.Pop()
	q.Done()
	second := q.Pop()
	q.Done()

	if first.Hyperlink.URI != "sooner" || second.Hyperlink.URI != "later" {
		t.Fatalf("expected sooner before later, got %q then %q", first.Hyperlink.URI, second.Hyperlink.URI)
	}
}

func TestWorkQueueJoinWaitsForDone(t *testing.T) {
	q := newWorkQueue()
	q.Push(CheckRequest{Hyperlink: &Hyperlink{URI: "x"}})

	done := make(chan struct{})
	go func() {
		q.Join()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Join returned before Done was called")
	case <-time.After(20 * time.Millisecond):
	}

	q.Pop()
	q.Done()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Join did not return after Done")
	}
}

func TestWorkQueueRequeueBeforeDoneKeepsJoinOpen(t *testing.T) {
	q := newWorkQueue()
	q.Push(CheckRequest{Hyperlink: &Hyperlink{URI: "x"}})

	done := make(chan struct{})
	go func() {
		q.Join()
		close(done)
	}()

	req := q.Pop()
	// Simulate a rate-limit reaction: push the replacement before marking
	// the original done, matching the worker's requeue ordering.
	q.Push(CheckRequest{Hyperlink: req.Hyperlink})
	q.Done()

	select {
	case <-done:
		t.Fatalf("Join returned while the requeued item was still outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	q.Pop()
	q.Done()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Join did not return after the requeued item was Done")
	}
}
