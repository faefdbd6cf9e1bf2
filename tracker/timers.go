package tracker

import (
	"time"
)

type (
	// timers are named single-shot timers whose callbacks run on the control
	// goroutine: when a timer fires, it posts a timerMsg to the model through
	// the broker and the model runs the callback in ProcessMsg. Restarting a
	// timer or stopping it makes an already posted callback stale, so a
	// callback never runs after its timer was reset.
	//
	// timers are owned by the control goroutine and are not safe for
	// concurrent use.
	timers struct {
		toModel chan<- MsgToModel
		done    chan struct{}
		active  map[string]*timer
		gen     uint64
	}

	timer struct {
		t   *time.Timer
		gen uint64
		f   func()
	}

	timerMsg struct {
		name string
		gen  uint64
	}
)

func newTimers(toModel chan<- MsgToModel) *timers {
	return &timers{
		toModel: toModel,
		done:    make(chan struct{}),
		active:  map[string]*timer{},
	}
}

// after starts the timer name to call f after d, replacing the timer with
// the same name if it is running.
func (t *timers) after(name string, d time.Duration, f func()) {
	t.stop(name)
	t.gen++
	msg := timerMsg{name: name, gen: t.gen}
	t.active[name] = &timer{
		gen: t.gen,
		f:   f,
		t: time.AfterFunc(d, func() {
			select {
			case t.toModel <- MsgToModel{Data: msg}:
			case <-t.done:
			}
		}),
	}
}

func (t *timers) stop(name string) {
	if a, ok := t.active[name]; ok {
		a.t.Stop()
		delete(t.active, name)
	}
}

func (t *timers) running(name string) bool {
	_, ok := t.active[name]
	return ok
}

// fire runs the callback of a posted timer, unless the timer was stopped or
// restarted after posting.
func (t *timers) fire(msg timerMsg) {
	a, ok := t.active[msg.name]
	if !ok || a.gen != msg.gen {
		return
	}
	delete(t.active, msg.name)
	a.f()
}

// stopAll stops every timer and releases the callbacks blocked on posting.
// The timers cannot be used afterwards.
func (t *timers) stopAll() {
	for name := range t.active {
		t.stop(name)
	}
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}
