package tracker

import (
	"iter"
	"math"
	"time"
)

type (
	// Alerts is the list of transient messages shown to the user. Alerts
	// expire after their duration and fade in and out while shown; named
	// alerts replace an existing alert of the same name instead of piling up.
	Alerts struct {
		alerts []Alert
	}

	Alert struct {
		Name      string
		Priority  AlertPriority
		Message   string
		Duration  time.Duration
		FadeLevel float64
	}

	AlertPriority int
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

const (
	defaultAlertDuration = 3 * time.Second
	alertFadeTime        = 150 * time.Millisecond
)

var alertPriorityNames = [...]string{"info", "warning", "error"}

func (p AlertPriority) String() string {
	if p < 0 || int(p) >= len(alertPriorityNames) {
		return "unknown"
	}
	return alertPriorityNames[p]
}

// Update ages the alerts by d and removes the expired ones. It returns true
// if any alert is still fading in or out, i.e. the view should be refreshed
// again soon.
func (m *Alerts) Update(d time.Duration) (animating bool) {
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := &m.alerts[i]
		if a.Duration > 0 {
			a.Duration -= d
			if a.FadeLevel < 1 {
				animating = true
				a.FadeLevel = math.Min(a.FadeLevel+float64(d)/float64(alertFadeTime), 1)
			}
			continue
		}
		animating = true
		a.FadeLevel = math.Max(a.FadeLevel-float64(d)/float64(alertFadeTime), 0)
		if a.FadeLevel <= 0 {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
		}
	}
	return animating
}

// Iterate yields the alerts from the oldest to the newest.
func (m *Alerts) Iterate(yield func(index int, alert Alert) bool) {
	for i, a := range m.alerts {
		if !yield(i, a) {
			return
		}
	}
}

// Messages returns the messages of the alerts with at least the given
// priority.
func (m *Alerts) Messages(min AlertPriority) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, a := range m.alerts {
			if a.Priority >= min && !yield(a.Message) {
				return
			}
		}
	}
}

func (m *Alerts) Len() int { return len(m.alerts) }

func (m *Alerts) Add(message string, priority AlertPriority) {
	m.AddAlert(Alert{
		Priority: priority,
		Message:  message,
		Duration: defaultAlertDuration,
	})
}

func (m *Alerts) AddNamed(name, message string, priority AlertPriority) {
	m.AddAlert(Alert{
		Name:     name,
		Priority: priority,
		Message:  message,
		Duration: defaultAlertDuration,
	})
}

func (m *Alerts) AddAlert(a Alert) {
	if a.Name != "" {
		for i := range m.alerts {
			if n := &m.alerts[i]; n.Name == a.Name {
				a.FadeLevel = n.FadeLevel
				*n = a
				return
			}
		}
	}
	m.alerts = append(m.alerts, a)
}

func (m *Alerts) Clear() {
	m.alerts = m.alerts[:0]
}
