package tracker

import (
	"github.com/vsariola/mixseq"
)

type (
	// History sequences the reversible changes to the session graph: every
	// command executed is pushed to a bounded undo stack, and every command
	// undone to a bounded redo stack. History never looks inside the
	// commands; each command knows how to apply and revert itself.
	//
	// History is not safe for concurrent use: it belongs to the control
	// goroutine, like the Model.
	//
	// Errors of the commands are returned as is and nothing is rolled back.
	// A failing Execute pushes nothing. A failing Undo or Redo has already
	// popped the command, so the command is dropped from the history.
	History struct {
		target    Target
		undoStack []Command
		redoStack []Command
		capacity  int
	}

	// Target is the holder of the current graph, e.g. the Model, which
	// publishes every new graph to the player.
	Target interface {
		Graph() *mixseq.Graph
		SetGraph(g *mixseq.Graph)
	}
)

const DefaultUndoCapacity = 50

func NewHistory(target Target, capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultUndoCapacity
	}
	return &History{target: target, capacity: capacity}
}

// Execute applies cmd to the current graph. On success, cmd is pushed to
// the undo stack, evicting the oldest command if the stack is full, and the
// redo stack is cleared.
func (h *History) Execute(cmd Command) error {
	g, err := cmd.apply(h.target.Graph())
	if err != nil {
		return err
	}
	h.target.SetGraph(g)
	h.undoStack = push(h.undoStack, cmd, h.capacity)
	clear(h.redoStack)
	h.redoStack = h.redoStack[:0]
	return nil
}

// Undo reverts the most recently executed command and moves it to the redo
// stack. Undo with nothing to undo does nothing.
func (h *History) Undo() error {
	if len(h.undoStack) == 0 {
		return nil
	}
	cmd := pop(&h.undoStack)
	g, err := cmd.revert(h.target.Graph())
	if err != nil {
		return err
	}
	h.target.SetGraph(g)
	h.redoStack = push(h.redoStack, cmd, h.capacity)
	return nil
}

// Redo applies again the most recently undone command and moves it back to
// the undo stack. Redo with nothing to redo does nothing.
func (h *History) Redo() error {
	if len(h.redoStack) == 0 {
		return nil
	}
	cmd := pop(&h.redoStack)
	g, err := cmd.apply(h.target.Graph())
	if err != nil {
		return err
	}
	h.target.SetGraph(g)
	h.undoStack = push(h.undoStack, cmd, h.capacity)
	return nil
}

func (h *History) CanUndo() bool { return len(h.undoStack) > 0 }
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

func (h *History) Capacity() int { return h.capacity }

// SetCapacity changes the size of both stacks. Shrinking evicts the oldest
// commands first.
func (h *History) SetCapacity(capacity int) error {
	if capacity < 1 {
		return &mixseq.ValidationError{Op: "SetCapacity", Field: "capacity", Value: capacity, Rule: "at least 1"}
	}
	h.capacity = capacity
	h.undoStack = trim(h.undoStack, capacity)
	h.redoStack = trim(h.redoStack, capacity)
	return nil
}

// Len returns the number of commands in the undo and redo stacks.
func (h *History) Len() (undo, redo int) { return len(h.undoStack), len(h.redoStack) }

// Clear forgets all the commands.
func (h *History) Clear() {
	h.undoStack = nil
	h.redoStack = nil
}

func push(stack []Command, cmd Command, capacity int) []Command {
	return trim(append(stack, cmd), capacity)
}

func pop(stack *[]Command) Command {
	s := *stack
	ret := s[len(s)-1]
	s[len(s)-1] = nil
	*stack = s[:len(s)-1]
	return ret
}

func trim(stack []Command, capacity int) []Command {
	if len(stack) <= capacity {
		return stack
	}
	n := copy(stack, stack[len(stack)-capacity:])
	clear(stack[n:])
	return stack[:n]
}
