// Package trigger runs the popup trigger state machine for a single page
// view: it arms time-delay, scroll and exit-intent watchers per popup and
// guarantees each popup is shown at most once.
package trigger

import (
	"log/slog"
	"sync"
	"time"

	"github.com/leadpop/leadpop/internal/models"
)

// State of one popup within a page view
type State int

const (
	StateIdle State = iota
	StateArmed
	StateTriggered
	StateShown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateTriggered:
		return "triggered"
	case StateShown:
		return "shown"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionStore remembers which popups a browsing session has already seen
type SessionStore interface {
	WasShown(sessionID, popupID string) bool
	MarkShown(sessionID, popupID string)
}

// ImpressionRecorder records an impression for a popup. The engine calls it
// on a separate goroutine; failures are the recorder's to log.
type ImpressionRecorder interface {
	RecordImpression(popupID string)
}

// ShowFunc receives the popup when it transitions to Shown
type ShowFunc func(popup models.Popup)

// afterFunc is time.AfterFunc, indirected for tests
var afterFunc = time.AfterFunc

// Engine drives the trigger state machines for all popups on one page view.
// Event inputs arrive from the page (scroll position, exit intent, close);
// time-delay watchers fire on their own timers.
type Engine struct {
	mu        sync.Mutex
	sessionID string
	sessions  SessionStore
	recorder  ImpressionRecorder
	onShow    ShowFunc
	logger    *slog.Logger

	instances map[string]*instance
	timers    []*time.Timer
	done      bool
}

type instance struct {
	popup models.Popup
	state State
}

// NewEngine arms watchers for the given popups. Popups with show_once that
// the session has already seen go straight to Closed.
func NewEngine(sessionID string, popups []models.Popup, sessions SessionStore, recorder ImpressionRecorder, onShow ShowFunc, logger *slog.Logger) *Engine {
	e := &Engine{
		sessionID: sessionID,
		sessions:  sessions,
		recorder:  recorder,
		onShow:    onShow,
		logger:    logger.With("component", "trigger"),
		instances: make(map[string]*instance),
	}

	for _, p := range popups {
		inst := &instance{popup: p, state: StateIdle}
		e.instances[p.ID] = inst

		if p.Config.Triggers.ShowOnce && sessions.WasShown(sessionID, p.ID) {
			inst.state = StateClosed
			continue
		}

		inst.state = StateArmed
		if delay := p.Config.Triggers.TimeDelay; delay > 0 {
			id := p.ID
			e.timers = append(e.timers, afterFunc(time.Duration(delay)*time.Second, func() {
				e.fire(id, "time_delay")
			}))
		}
	}

	return e
}

// Scroll reports the page scroll position as a percentage of the scrollable
// height. Armed popups with a scroll threshold at or below the position fire.
func (e *Engine) Scroll(percent int) {
	e.mu.Lock()
	var fired []string
	for id, inst := range e.instances {
		threshold := inst.popup.Config.Triggers.ScrollPercent
		if inst.state == StateArmed && threshold > 0 && percent >= threshold {
			fired = append(fired, id)
		}
	}
	e.mu.Unlock()

	for _, id := range fired {
		e.fire(id, "scroll")
	}
}

// ExitIntent reports the pointer leaving the top edge of the viewport.
// Every armed popup fires.
func (e *Engine) ExitIntent() {
	e.mu.Lock()
	var fired []string
	for id, inst := range e.instances {
		if inst.state == StateArmed {
			fired = append(fired, id)
		}
	}
	e.mu.Unlock()

	for _, id := range fired {
		e.fire(id, "exit_intent")
	}
}

// ClosePopup moves a shown popup to Closed
func (e *Engine) ClosePopup(popupID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[popupID]
	if !ok || inst.state != StateShown {
		return
	}
	inst.state = StateClosed
}

// State returns the current state of a popup, StateIdle for unknown ids
func (e *Engine) State(popupID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if inst, ok := e.instances[popupID]; ok {
		return inst.state
	}
	return StateIdle
}

// Teardown cancels all pending watchers, as on navigation away from the page
func (e *Engine) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.done = true
	for _, t := range e.timers {
		t.Stop()
	}
	for _, inst := range e.instances {
		if inst.state == StateArmed || inst.state == StateIdle {
			inst.state = StateClosed
		}
	}
}

// fire moves an armed popup through Triggered to Shown. The armed-state
// check makes the first watcher win; every later watcher is a no-op.
func (e *Engine) fire(popupID, watcher string) {
	e.mu.Lock()

	inst, ok := e.instances[popupID]
	if !ok || e.done || inst.state != StateArmed {
		e.mu.Unlock()
		return
	}

	inst.state = StateTriggered
	inst.state = StateShown
	popup := inst.popup

	if popup.Config.Triggers.ShowOnce {
		e.sessions.MarkShown(e.sessionID, popupID)
	}
	e.mu.Unlock()

	e.logger.Debug("popup triggered", "popup_id", popupID, "watcher", watcher)

	// Impression recording must not block display
	if e.recorder != nil {
		go e.recorder.RecordImpression(popupID)
	}

	if e.onShow != nil {
		e.onShow(popup)
	}
}
