package claims

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from   string
		action Action
		want   string
		ok     bool
	}{
		{StatusPending, ActionApprove, StatusApproved, true},
		{StatusApproved, ActionPay, StatusPaid, true},
		{StatusPaid, ActionStart, StatusInProgress, true},
		{StatusInProgress, ActionDeliver, StatusDelivered, true},
		{StatusPending, ActionCancel, StatusCanceled, true},
		{StatusApproved, ActionCancel, StatusCanceled, true},
		{StatusPaid, ActionCancel, StatusCanceled, true},
		{StatusInProgress, ActionCancel, StatusCanceled, true},

		{StatusPending, ActionPay, "", false},
		{StatusApproved, ActionStart, "", false},
		{StatusPaid, ActionDeliver, "", false},
		{StatusDelivered, ActionCancel, "", false},
		{StatusCanceled, ActionCancel, "", false},
		{StatusCanceled, ActionApprove, "", false},
		{StatusPaid, ActionCode, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+tt.from, func(t *testing.T) {
			got, err := Next(tt.from, tt.action)
			if !tt.ok {
				require.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	for _, status := range []string{StatusDelivered, StatusCanceled} {
		assert.True(t, IsTerminal(status))
		for action := range transitions {
			_, err := Next(status, action)
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s from %s", action, status)
		}
	}
	assert.False(t, IsTerminal(StatusPaid))
}

func TestEscrowAndReservation(t *testing.T) {
	assert.False(t, HoldsEscrow(StatusPending))
	assert.False(t, HoldsEscrow(StatusApproved))
	assert.True(t, HoldsEscrow(StatusPaid))
	assert.True(t, HoldsEscrow(StatusInProgress))
	assert.False(t, HoldsEscrow(StatusDelivered))

	assert.False(t, ReservesProject(StatusPending))
	assert.True(t, ReservesProject(StatusApproved))
	assert.True(t, ReservesProject(StatusInProgress))
	assert.False(t, ReservesProject(StatusCanceled))
}

func TestAuthorize(t *testing.T) {
	claim := func(status string) Claim {
		return Claim{ID: uuid.New(), TravelerID: "traveler", SenderID: "sender", Status: status}
	}
	traveler := Actor{ID: "traveler"}
	sender := Actor{ID: "sender"}
	stranger := Actor{ID: "someone"}
	admin := Actor{ID: "root", Admin: true}

	tests := []struct {
		name   string
		status string
		actor  Actor
		action Action
		ok     bool
	}{
		{"sender approves", StatusPending, sender, ActionApprove, true},
		{"traveler cannot approve", StatusPending, traveler, ActionApprove, false},
		{"sender pays", StatusApproved, sender, ActionPay, true},
		{"stranger cannot pay", StatusApproved, stranger, ActionPay, false},
		{"traveler starts", StatusPaid, traveler, ActionStart, true},
		{"sender cannot start", StatusPaid, sender, ActionStart, false},
		{"traveler delivers", StatusInProgress, traveler, ActionDeliver, true},
		{"admin cannot deliver", StatusInProgress, admin, ActionDeliver, false},
		{"sender regenerates code", StatusPaid, sender, ActionCode, true},
		{"traveler cannot regenerate code", StatusPaid, traveler, ActionCode, false},
		{"traveler withdraws pending", StatusPending, traveler, ActionCancel, true},
		{"sender cancels paid", StatusPaid, sender, ActionCancel, true},
		{"stranger cannot cancel", StatusPending, stranger, ActionCancel, false},
		{"sender cannot cancel in progress", StatusInProgress, sender, ActionCancel, false},
		{"traveler cannot cancel in progress", StatusInProgress, traveler, ActionCancel, false},
		{"admin cancels in progress", StatusInProgress, admin, ActionCancel, true},
		{"empty actor", StatusPending, Actor{}, ActionApprove, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(claim(tt.status), tt.actor, tt.action)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestCanView(t *testing.T) {
	c := Claim{TravelerID: "traveler", SenderID: "sender"}
	assert.True(t, CanView(c, Actor{ID: "traveler"}))
	assert.True(t, CanView(c, Actor{ID: "sender"}))
	assert.True(t, CanView(c, Actor{ID: "root", Admin: true}))
	assert.False(t, CanView(c, Actor{ID: "someone"}))
	assert.False(t, CanView(Claim{}, Actor{}))
}
