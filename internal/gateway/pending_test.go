package gateway

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCorrelator_Resolve(t *testing.T) {
	c := NewCorrelator()
	ch := c.Add("msg-1", "CP001")

	if !c.Resolve("msg-1", json.RawMessage(`{"status":"Accepted"}`)) {
		t.Fatalf("resolve should match the pending call")
	}

	outcome := <-ch
	if outcome.Err != nil {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if string(outcome.Payload) != `{"status":"Accepted"}` {
		t.Fatalf("payload mismatch: got=%s", outcome.Payload)
	}
	if c.Count() != 0 {
		t.Fatalf("resolved call should be removed, count=%d", c.Count())
	}
}

func TestCorrelator_Reject(t *testing.T) {
	c := NewCorrelator()
	ch := c.Add("msg-1", "CP001")

	callErr := errors.New("rejected")
	if !c.Reject("msg-1", callErr) {
		t.Fatalf("reject should match the pending call")
	}

	outcome := <-ch
	if !errors.Is(outcome.Err, callErr) {
		t.Fatalf("error mismatch: got=%v", outcome.Err)
	}
}

func TestCorrelator_SettleAtMostOnce(t *testing.T) {
	c := NewCorrelator()
	ch := c.Add("msg-1", "CP001")

	if !c.Resolve("msg-1", json.RawMessage(`{}`)) {
		t.Fatalf("first settle should match")
	}
	// 晚到的重复结果匹配不到条目
	if c.Resolve("msg-1", json.RawMessage(`{}`)) {
		t.Fatalf("second resolve should miss")
	}
	if c.Reject("msg-1", errors.New("late")) {
		t.Fatalf("reject after resolve should miss")
	}

	outcome := <-ch
	if outcome.Err != nil {
		t.Fatalf("settled outcome should be the first one: %v", outcome.Err)
	}
}

func TestCorrelator_RemoveWithoutSettle(t *testing.T) {
	c := NewCorrelator()
	ch := c.Add("msg-1", "CP001")

	c.Remove("msg-1")
	if c.Resolve("msg-1", json.RawMessage(`{}`)) {
		t.Fatalf("resolve after remove should miss")
	}
	select {
	case outcome := <-ch:
		t.Fatalf("removed call should never settle, got=%+v", outcome)
	default:
	}
}

func TestCorrelator_FailAllForCharger(t *testing.T) {
	c := NewCorrelator()
	ch1 := c.Add("msg-1", "CP001")
	ch2 := c.Add("msg-2", "CP001")
	ch3 := c.Add("msg-3", "CP002")

	n := c.FailAllForCharger("CP001", ErrDisconnected)
	if n != 2 {
		t.Fatalf("failed count mismatch: got=%d want=2", n)
	}

	for _, ch := range []<-chan Outcome{ch1, ch2} {
		outcome := <-ch
		if !errors.Is(outcome.Err, ErrDisconnected) {
			t.Fatalf("expected ErrDisconnected, got=%v", outcome.Err)
		}
	}

	// 其他桩的在途调用不受影响
	select {
	case outcome := <-ch3:
		t.Fatalf("other charger call should stay pending, got=%+v", outcome)
	default:
	}
	if c.Count() != 1 {
		t.Fatalf("count mismatch: got=%d want=1", c.Count())
	}
}
