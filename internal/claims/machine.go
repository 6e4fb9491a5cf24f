package claims

import (
	"errors"
	"fmt"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionPay     Action = "pay"
	ActionStart   Action = "start"
	ActionDeliver Action = "deliver"
	ActionCancel  Action = "cancel"
	ActionCode    Action = "regenerate_code"
)

var (
	ErrClaimNotFound       = errors.New("claim not found")
	ErrForbidden           = errors.New("not allowed to act on this claim")
	ErrInvalidTransition   = errors.New("invalid claim transition")
	ErrDuplicateClaim      = errors.New("traveler already has a live claim on this project")
	ErrOwnProject          = errors.New("cannot claim your own project")
	ErrProjectUnavailable  = errors.New("project is not open for claims")
	ErrInvalidDeliveryCode = errors.New("invalid delivery code")
	ErrCodeLocked          = errors.New("too many delivery code attempts")
	ErrCurrencyMismatch    = errors.New("wallet currency does not match claim currency")
)

// transitions maps each action to the statuses it may leave and where it lands.
var transitions = map[Action]map[string]string{
	ActionApprove: {StatusPending: StatusApproved},
	ActionPay:     {StatusApproved: StatusPaid},
	ActionStart:   {StatusPaid: StatusInProgress},
	ActionDeliver: {StatusInProgress: StatusDelivered},
	ActionCancel: {
		StatusPending:    StatusCanceled,
		StatusApproved:   StatusCanceled,
		StatusPaid:       StatusCanceled,
		StatusInProgress: StatusCanceled,
	},
}

// Next returns the status reached by applying action to a claim in from.
func Next(from string, action Action) (string, error) {
	to, ok := transitions[action][from]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a %s claim", ErrInvalidTransition, action, from)
	}
	return to, nil
}

// IsTerminal reports whether no action can leave status.
func IsTerminal(status string) bool {
	return status == StatusDelivered || status == StatusCanceled
}

// HoldsEscrow reports whether the sender's money is held for a claim in status.
func HoldsEscrow(status string) bool {
	return status == StatusPaid || status == StatusInProgress
}

// ReservesProject reports whether a claim in status keeps the project off the market.
func ReservesProject(status string) bool {
	return status == StatusApproved || HoldsEscrow(status)
}

// Actor is whoever asks for a transition.
type Actor struct {
	ID    string
	Admin bool
}

// SystemActor is used by background jobs.
var SystemActor = Actor{ID: "system", Admin: true}

// Authorize checks that actor may perform action on c. The sender drives
// approval, payment and code handling; the traveler drives pickup and
// delivery. Either party may cancel until pickup, after which only an admin can.
func Authorize(c Claim, a Actor, action Action) error {
	isTraveler := a.ID != "" && a.ID == c.TravelerID
	isSender := a.ID != "" && a.ID == c.SenderID

	switch action {
	case ActionApprove, ActionPay, ActionCode:
		if isSender {
			return nil
		}
	case ActionStart, ActionDeliver:
		if isTraveler {
			return nil
		}
	case ActionCancel:
		if a.Admin {
			return nil
		}
		if c.Status == StatusInProgress {
			return fmt.Errorf("%w: only an admin can cancel a claim in progress", ErrForbidden)
		}
		if isTraveler || isSender {
			return nil
		}
	}
	return ErrForbidden
}

// CanView reports whether a may read c and its history.
func CanView(c Claim, a Actor) bool {
	return a.Admin || (a.ID != "" && (a.ID == c.TravelerID || a.ID == c.SenderID))
}
