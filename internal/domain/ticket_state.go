package domain

import (
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// TicketAction is an event applied to the ticket state machine.
type TicketAction string

const (
	ActionClaim      TicketAction = "claim"
	ActionSetPending TicketAction = "set_pending"
	ActionResume     TicketAction = "resume"
	ActionTransfer   TicketAction = "transfer"
	ActionResolve    TicketAction = "resolve"
	ActionClose      TicketAction = "close"
	ActionReopen     TicketAction = "reopen"
)

// AllTicketActions lists every action the state machine understands.
var AllTicketActions = []TicketAction{
	ActionClaim,
	ActionSetPending,
	ActionResume,
	ActionTransfer,
	ActionResolve,
	ActionClose,
	ActionReopen,
}

var ticketTransitions = map[TicketState]map[TicketAction]TicketState{
	TicketStateOpen: {
		ActionClaim: TicketStateClaimed,
	},
	TicketStateClaimed: {
		ActionSetPending: TicketStatePending,
		ActionTransfer:   TicketStateClaimed,
		ActionResolve:    TicketStateResolved,
	},
	TicketStatePending: {
		ActionResume:   TicketStateClaimed,
		ActionTransfer: TicketStatePending,
		ActionResolve:  TicketStateResolved,
	},
	TicketStateResolved: {
		ActionClose: TicketStateClosed,
	},
	TicketStateClosed: {
		ActionReopen: TicketStateOpen,
	},
}

// NextState returns the state reached by applying action to the ticket's current state.
// The ticket itself is not modified.
func (t *Ticket) NextState(action TicketAction) (TicketState, error) {
	if next, ok := ticketTransitions[t.State][action]; ok {
		return next, nil
	}
	if action == ActionClaim && t.State.HoldsAssignment() {
		return t.State, apperrors.NewAlreadyClaimed(t.ID, t.Assignee())
	}
	return t.State, apperrors.NewInvalidTransition(string(t.State), string(action))
}

// CanApply reports whether action is valid from state.
func CanApply(state TicketState, action TicketAction) bool {
	_, ok := ticketTransitions[state][action]
	return ok
}
