package envelope

import (
	"sync"
	"testing"
)

func TestExchangeSwapsSenderReceiver(t *testing.T) {
	req := &Envelope{Type: TypeReadGroup, Sender: "app1", Receiver: "driver1", Context: "ctx1", Trace: "trace1"}
	resp := Exchange(req, TypeReadGroup, nil)
	if resp.Sender != "driver1" || resp.Receiver != "app1" {
		t.Fatalf("expected sender/receiver swapped, got sender=%s receiver=%s", resp.Sender, resp.Receiver)
	}
	if resp.Context != "ctx1" || resp.Trace != "trace1" {
		t.Fatalf("expected context/trace to pass through untouched")
	}
}

func TestNewErrorBuildsErrorEnvelope(t *testing.T) {
	req := &Envelope{Type: TypeReadGroup, Sender: "a", Receiver: "b"}
	resp := NewError(req, "SOME_ERROR")
	if resp.Type != TypeError {
		t.Fatalf("expected TypeError, got %s", resp.Type)
	}
	body, ok := resp.Body.(ErrorBody)
	if !ok || body.Code != "SOME_ERROR" {
		t.Fatalf("expected ErrorBody{Code: SOME_ERROR}, got %#v", resp.Body)
	}
}

func TestRefcountReachesZeroExactlyOnce(t *testing.T) {
	var zeroCount int
	var mu sync.Mutex
	rc := NewRefcount(5, func() {
		mu.Lock()
		zeroCount++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc.Decrement()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if zeroCount != 1 {
		t.Fatalf("expected onZero to fire exactly once, fired %d times", zeroCount)
	}
}

func TestNewTransDataSeedsRefcountAtSubscriberCount(t *testing.T) {
	var freed bool
	e := NewTransData("driverA", "groupA", nil, 3, func() { freed = true })
	body := e.Body.(TransDataBody)
	rc := body.Refcount()

	rc.Decrement()
	rc.Decrement()
	if freed {
		t.Fatalf("payload freed before all 3 references released")
	}
	rc.Decrement()
	if !freed {
		t.Fatalf("expected payload freed after 3rd decrement")
	}
}

func TestNewTransDataBodySharedAllCopiesShareOneRefcount(t *testing.T) {
	freedCount := 0
	rc := NewRefcount(3, func() { freedCount++ })

	bodies := []TransDataBody{
		NewTransDataBodyShared("d", "g", nil, rc),
		NewTransDataBodyShared("d", "g", nil, rc),
		NewTransDataBodyShared("d", "g", nil, rc),
	}
	for _, b := range bodies {
		b.Refcount().Decrement()
	}
	if freedCount != 1 {
		t.Fatalf("expected shared refcount to free exactly once across copies, freed %d times", freedCount)
	}
}
