package tracker

import (
	"strings"

	"github.com/vsariola/mixseq"
)

type (
	String struct {
		value StringValue
	}

	StringValue interface {
		Value() string
		SetValue(string) bool
	}

	trackName struct {
		m  *Model
		id mixseq.TrackID
	}
)

func MakeString(value StringValue) String {
	return String{value: value}
}

func (v String) SetValue(value string) bool {
	if v.value == nil || v.value.Value() == value {
		return false
	}
	return v.value.SetValue(value)
}

func (v String) Value() string {
	if v.value == nil {
		return ""
	}
	return v.value.Value()
}

// TrackName returns the name of the track as an editable String. Renaming
// goes through the history; names are trimmed and cannot be empty.
func (m *Model) TrackName(id mixseq.TrackID) String { return MakeString(trackName{m: m, id: id}) }

func (v trackName) Value() string {
	t, ok := v.m.graph.Track(v.id)
	if !ok {
		return ""
	}
	return t.Name
}

func (v trackName) SetValue(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	return v.m.RenameTrack(v.id, value) == nil
}
