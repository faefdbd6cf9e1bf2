package tracker

import (
	"testing"
	"time"
)

func TestTimersFireOnControlGoroutine(t *testing.T) {
	ch := make(chan MsgToModel, 4)
	tm := newTimers(ch)
	defer tm.stopAll()
	fired := 0
	tm.after("a", time.Millisecond, func() { fired++ })
	msg, ok := TimeoutReceive(ch, time.Second)
	if !ok {
		t.Fatalf("timer did not fire")
	}
	if fired != 0 {
		t.Fatalf("the callback should only run when the message is processed")
	}
	tm.fire(msg.Data.(timerMsg))
	if fired != 1 {
		t.Fatalf("expected the callback to run once, got %d", fired)
	}
	tm.fire(msg.Data.(timerMsg))
	if fired != 1 {
		t.Fatalf("a timer should fire only once, got %d", fired)
	}
}

func TestTimersRestartMakesPostedStale(t *testing.T) {
	ch := make(chan MsgToModel, 4)
	tm := newTimers(ch)
	defer tm.stopAll()
	var got []string
	tm.after("a", time.Millisecond, func() { got = append(got, "first") })
	stale, ok := TimeoutReceive(ch, time.Second)
	if !ok {
		t.Fatalf("timer did not fire")
	}
	tm.after("a", time.Millisecond, func() { got = append(got, "second") })
	fresh, ok := TimeoutReceive(ch, time.Second)
	if !ok {
		t.Fatalf("restarted timer did not fire")
	}
	tm.fire(stale.Data.(timerMsg))
	tm.fire(fresh.Data.(timerMsg))
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("expected only the restarted callback to run, got %v", got)
	}
	if tm.running("a") {
		t.Fatalf("a fired timer should not be running")
	}
}
