package tracker

import (
	"sync/atomic"
	"time"

	"github.com/vsariola/mixseq"
)

type (
	// Broker is the centralized message broker between the model (the
	// control goroutine) and the player (the audio callback). Communication
	// is many-to-one, with one channel for each recipient.
	//
	// The current graph snapshot is not sent through a channel: the model
	// publishes every new snapshot with an atomic store to Graph and the
	// player loads it at the start of every audio block, so the player
	// always sees a complete snapshot and never a partial update.
	Broker struct {
		ToModel  chan MsgToModel
		ToPlayer chan any

		Graph atomic.Pointer[mixseq.Graph]

		// CloseModel is used to ask the model loop to quit. It has a capacity
		// of 1, so sending to it never blocks; FinishedModel is closed when
		// the loop has quit.
		CloseModel    chan struct{}
		FinishedModel chan struct{}
	}

	// MsgToModel is a message sent to the model. The frequently sent player
	// status is not boxed, to avoid allocations in the audio callback. All
	// the infrequently passed messages can be boxed & cast to any.
	MsgToModel struct {
		HasStatus bool
		Status    PlayerStatus
		Triggered uint64 // bit i is set if the track with order i was triggered

		Data any
	}

	// PlayerStatus is the state of the transport as seen by the player.
	PlayerStatus struct {
		State       TransportState
		BPM         float64
		CurrentStep int // the step the next tick plays
		PlayedStep  int // the step heard in the last block, -1 if none
		SongStep    int
		Frame       int64 // frames rendered so far
	}
)

const brokerChannelSize = 1024

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:      make(chan any, brokerChannelSize),
		ToModel:       make(chan MsgToModel, brokerChannelSize),
		CloseModel:    make(chan struct{}, 1),
		FinishedModel: make(chan struct{}),
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
