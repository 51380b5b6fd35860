package runtime

import (
	"github.com/aretw0/ussdflow/pkg/domain"
)

// Session owns the live transaction parameters and the duplicate-dialog guard.
// It is not safe for concurrent use; the controller's owner goroutine serialises access.
type Session struct {
	machine *Machine
	params  domain.TransactionParameters

	// lastText is the last dialog text acted upon. A notification repeating it is
	// a redraw of the same screen, not a new prompt.
	lastText     string
	hasLast      bool
	clickPending bool
	// rollback holds the parameters from before the in-flight click's step.
	rollback *domain.TransactionParameters
}

// NewSession creates a session around existing parameters.
func NewSession(m *Machine, p domain.TransactionParameters) *Session {
	return &Session{machine: m, params: p}
}

// Params returns a copy of the live parameters.
func (s *Session) Params() domain.TransactionParameters {
	return s.params
}

// Replace swaps the parameters and clears the guard.
func (s *Session) Replace(p domain.TransactionParameters) {
	s.params = p
	s.ClearGuard()
}

// Update swaps the parameters and keeps the guard.
func (s *Session) Update(p domain.TransactionParameters) {
	s.params = p
}

// guarded reports whether the current step deduplicates notifications.
// PinPrompt must see every notification to pick up a submitted PIN, and
// Completed ignores notifications anyway.
func (s *Session) guarded() bool {
	return s.params.Step != domain.StepPinPrompt && s.params.Step != domain.StepCompleted
}

// Observe runs the machine for a snapshot. ok is false when the guard suppressed
// the notification; reason explains why.
func (s *Session) Observe(snap domain.DialogSnapshot) (d Decision, ok bool, reason string) {
	if s.guarded() {
		if s.clickPending {
			return Decision{}, false, "send pending"
		}
		if s.hasLast && snap.RawText == s.lastText {
			return Decision{}, false, "duplicate dialog"
		}
	}
	return s.machine.Decide(s.params, snap), true, ""
}

// Commit stores the decision's parameters and remembers the text it answered.
func (s *Session) Commit(snap domain.DialogSnapshot, d Decision) {
	s.params = d.Next
	s.lastText = snap.RawText
	s.hasLast = true
}

// ClickScheduled marks a send click as in flight. from is restored if the
// click never happens.
func (s *Session) ClickScheduled(from domain.TransactionParameters) {
	s.clickPending = true
	s.rollback = &from
}

// ClickDone ends the in-flight click. Either way identical text is accepted
// again: after a click the dialog is expected to change, and after a failed one
// the same screen must be answered again. A failed click restores the
// parameters from before the step and reports true.
func (s *Session) ClickDone(clicked bool) (restored bool) {
	s.clickPending = false
	s.lastText = ""
	s.hasLast = false
	from := s.rollback
	s.rollback = nil
	if clicked || from == nil {
		return false
	}
	s.params = *from
	return true
}

// ClickPending reports whether a send click is in flight.
func (s *Session) ClickPending() bool {
	return s.clickPending
}

// ClearGuard forgets the last text and any in-flight click.
func (s *Session) ClearGuard() {
	s.lastText = ""
	s.hasLast = false
	s.clickPending = false
	s.rollback = nil
}
