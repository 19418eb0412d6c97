package domain

import (
	"fmt"
	"strings"
	"time"
)

// StatusCommand is an expert action on a ticket card.
type StatusCommand int

const (
	CommandReopen StatusCommand = iota + 1
	CommandClose
	CommandAssignToSelf
)

// Action values carried by SME card submissions.
const (
	ReopenAction       = "ReopenAction"
	CloseAction        = "CloseAction"
	AssignToSelfAction = "AssignToSelfAction"
)

// User-facing notification summaries.
const (
	ReopenedTicketUserNotification = "Your request has been reopened."
	ClosedTicketUserNotification   = "Your request has been closed."
	AssignedTicketUserNotification = "Your request has been assigned to an expert."
)

func (c StatusCommand) String() string {
	switch c {
	case CommandReopen:
		return ReopenAction
	case CommandClose:
		return CloseAction
	case CommandAssignToSelf:
		return AssignToSelfAction
	default:
		return "UnknownAction"
	}
}

// UnknownCommandError is returned for action strings outside the command set.
type UnknownCommandError struct {
	Action string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown status command %q", e.Action)
}

var commandAliases = map[string]StatusCommand{
	"reopenaction":       CommandReopen,
	"reopen":             CommandReopen,
	"closeaction":        CommandClose,
	"close":              CommandClose,
	"assigntoselfaction": CommandAssignToSelf,
	"assigntoself":       CommandAssignToSelf,
	"assign-to-self":     CommandAssignToSelf,
}

// ParseStatusCommand maps a submitted action to a command.
func ParseStatusCommand(action string) (StatusCommand, error) {
	cmd, ok := commandAliases[strings.ToLower(strings.TrimSpace(action))]
	if !ok {
		return 0, &UnknownCommandError{Action: action}
	}
	return cmd, nil
}

// StatusNotice holds the notifications produced by a transition.
type StatusNotice struct {
	SmeText     string
	UserSummary string
}

// ApplyStatusCommand returns the ticket after cmd is applied by actor at now.
// The input ticket is not modified.
func ApplyStatusCommand(ticket Ticket, cmd StatusCommand, actor Actor, now time.Time) (Ticket, StatusNotice, error) {
	next := ticket
	next.LastModifiedByName = actor.Name
	next.LastModifiedByObjectID = actor.ObjectID
	next.UpdatedAt = now

	var notice StatusNotice
	switch cmd {
	case CommandReopen:
		next.Status = TicketStatusOpen
		next.AssignedToName = nil
		next.AssignedToObjectID = nil
		next.DateAssigned = nil
		next.DateClosed = nil
		notice.SmeText = fmt.Sprintf("This request is now unassigned. Last updated by %s.", actor.Name)
		notice.UserSummary = ReopenedTicketUserNotification
	case CommandClose:
		closedAt := now
		next.Status = TicketStatusClosed
		next.DateClosed = &closedAt
		notice.SmeText = fmt.Sprintf("This request is now closed. Closed by %s.", actor.Name)
		notice.UserSummary = ClosedTicketUserNotification
	case CommandAssignToSelf:
		assignedAt := now
		name, objectID := actor.Name, actor.ObjectID
		next.Status = TicketStatusOpen
		next.AssignedToName = &name
		next.AssignedToObjectID = &objectID
		next.DateAssigned = &assignedAt
		next.DateClosed = nil
		notice.SmeText = fmt.Sprintf("This request is now assigned. Assigned to %s.", actor.Name)
		notice.UserSummary = AssignedTicketUserNotification
	default:
		return ticket, StatusNotice{}, &UnknownCommandError{Action: cmd.String()}
	}
	return next, notice, nil
}
