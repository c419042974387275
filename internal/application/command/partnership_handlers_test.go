package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

type partnershipFixture struct {
	repo     *memPartnershipRepo
	profiles *memProfileRepo
	events   *recordingPublisher
	notifier *recordingNotifier
}

func newPartnershipFixture() *partnershipFixture {
	return &partnershipFixture{
		repo:     newMemPartnershipRepo(),
		profiles: newMemProfileRepo(),
		events:   &recordingPublisher{},
		notifier: &recordingNotifier{},
	}
}

func (f *partnershipFixture) newUser(t *testing.T, email string) shared.UserID {
	t.Helper()
	id, err := shared.NewUserID(uuid.NewString())
	require.NoError(t, err)
	p, err := profile.New(id, email)
	require.NoError(t, err)
	require.NoError(t, f.profiles.Upsert(context.Background(), p))
	return id
}

func (f *partnershipFixture) inviteHandler() *CreateInvitationHandler {
	return NewCreateInvitationHandler(f.repo, f.notifier, f.events, nil, "https://habitpact.example")
}

func (f *partnershipFixture) redeemHandler() *RedeemInvitationHandler {
	return NewRedeemInvitationHandler(f.repo, f.events, nil)
}

func TestCreateInvitationHandler_NotifiesInvitee(t *testing.T) {
	f := newPartnershipFixture()
	inviter := f.newUser(t, "inviter@example.com")

	inv, err := f.inviteHandler().Handle(context.Background(), CreateInvitationCommand{
		InviterID:    inviter,
		InviteeEmail: "friend@example.com",
	})
	require.NoError(t, err)
	assert.Len(t, inv.Code, partnership.CodeLength)
	assert.Equal(t, []string{inv.Code}, f.notifier.codes)
	assert.Contains(t, f.events.types(), shared.EventInvitationCreated)
}

func TestCreateInvitationHandler_NotifierFailureIsNonFatal(t *testing.T) {
	f := newPartnershipFixture()
	f.notifier.err = errBlobDown
	inviter := f.newUser(t, "inviter@example.com")

	inv, err := f.inviteHandler().Handle(context.Background(), CreateInvitationCommand{
		InviterID:    inviter,
		InviteeEmail: "friend@example.com",
	})
	require.NoError(t, err)

	stored, err := f.repo.GetInvitationByCode(context.Background(), inv.Code)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, stored.ID)
}

func TestCreateInvitationHandler_AlreadyPartnered(t *testing.T) {
	f := newPartnershipFixture()
	inviter := f.newUser(t, "inviter@example.com")
	partner := f.newUser(t, "partner@example.com")

	inv, err := f.inviteHandler().Handle(context.Background(), CreateInvitationCommand{InviterID: inviter})
	require.NoError(t, err)
	_, err = f.redeemHandler().Handle(context.Background(), RedeemInvitationCommand{
		RedeemerID: partner, Code: inv.Code,
	})
	require.NoError(t, err)

	_, err = f.inviteHandler().Handle(context.Background(), CreateInvitationCommand{InviterID: inviter})
	assert.ErrorIs(t, err, shared.ErrAlreadyPartnered)
}

func TestRedeemInvitationHandler_FormsPartnership(t *testing.T) {
	f := newPartnershipFixture()
	inviter := f.newUser(t, "inviter@example.com")
	redeemer := f.newUser(t, "redeemer@example.com")

	inv, err := f.inviteHandler().Handle(context.Background(), CreateInvitationCommand{InviterID: inviter})
	require.NoError(t, err)

	p, err := f.redeemHandler().Handle(context.Background(), RedeemInvitationCommand{
		RedeemerID: redeemer,
		Code:       inv.Code,
	})
	require.NoError(t, err)
	assert.True(t, p.IsActive())
	assert.True(t, p.IsParty(inviter))
	assert.True(t, p.IsParty(redeemer))
	assert.Contains(t, f.events.types(), shared.EventPartnershipFormed)

	// The code is spent; a second redemption finds no pending invitation.
	_, err = f.redeemHandler().Handle(context.Background(), RedeemInvitationCommand{
		RedeemerID: f.newUser(t, "third@example.com"),
		Code:       inv.Code,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRedeemInvitationHandler_CodeIsCaseInsensitive(t *testing.T) {
	f := newPartnershipFixture()
	inviter := f.newUser(t, "inviter@example.com")
	redeemer := f.newUser(t, "redeemer@example.com")

	inv, err := f.inviteHandler().Handle(context.Background(), CreateInvitationCommand{InviterID: inviter})
	require.NoError(t, err)

	_, err = f.redeemHandler().Handle(context.Background(), RedeemInvitationCommand{
		RedeemerID: redeemer,
		Code:       "  " + strings.ToLower(inv.Code) + " ",
	})
	require.NoError(t, err)
}

func TestRedeemInvitationHandler_SelfRedeem(t *testing.T) {
	f := newPartnershipFixture()
	inviter := f.newUser(t, "inviter@example.com")

	inv, err := f.inviteHandler().Handle(context.Background(), CreateInvitationCommand{InviterID: inviter})
	require.NoError(t, err)

	_, err = f.redeemHandler().Handle(context.Background(), RedeemInvitationCommand{
		RedeemerID: inviter,
		Code:       inv.Code,
	})
	assert.ErrorIs(t, err, shared.ErrSelfRedeem)
}

func TestRedeemInvitationHandler_Expired(t *testing.T) {
	f := newPartnershipFixture()
	inviter := f.newUser(t, "inviter@example.com")
	redeemer := f.newUser(t, "redeemer@example.com")

	inv, err := partnership.NewInvitation(inviter, "")
	require.NoError(t, err)
	inv.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.repo.CreateInvitation(context.Background(), inv))

	_, err = f.redeemHandler().Handle(context.Background(), RedeemInvitationCommand{
		RedeemerID: redeemer,
		Code:       inv.Code,
	})
	assert.ErrorIs(t, err, shared.ErrExpired)
}

func TestRedeemInvitationHandler_RedeemerAlreadyPartnered(t *testing.T) {
	f := newPartnershipFixture()
	inviterA := f.newUser(t, "a@example.com")
	inviterB := f.newUser(t, "b@example.com")
	redeemer := f.newUser(t, "c@example.com")

	invA, err := f.inviteHandler().Handle(context.Background(), CreateInvitationCommand{InviterID: inviterA})
	require.NoError(t, err)
	invB, err := f.inviteHandler().Handle(context.Background(), CreateInvitationCommand{InviterID: inviterB})
	require.NoError(t, err)

	_, err = f.redeemHandler().Handle(context.Background(), RedeemInvitationCommand{RedeemerID: redeemer, Code: invA.Code})
	require.NoError(t, err)

	_, err = f.redeemHandler().Handle(context.Background(), RedeemInvitationCommand{RedeemerID: redeemer, Code: invB.Code})
	assert.ErrorIs(t, err, shared.ErrAlreadyPartnered)
}

func TestEndPartnershipHandler(t *testing.T) {
	f := newPartnershipFixture()
	inviter := f.newUser(t, "inviter@example.com")
	redeemer := f.newUser(t, "redeemer@example.com")
	stranger := f.newUser(t, "stranger@example.com")

	inv, err := f.inviteHandler().Handle(context.Background(), CreateInvitationCommand{InviterID: inviter})
	require.NoError(t, err)
	p, err := f.redeemHandler().Handle(context.Background(), RedeemInvitationCommand{RedeemerID: redeemer, Code: inv.Code})
	require.NoError(t, err)

	handler := NewEndPartnershipHandler(f.repo, f.events, nil)

	err = handler.Handle(context.Background(), EndPartnershipCommand{CallerID: stranger, PartnershipID: p.ID})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	err = handler.Handle(context.Background(), EndPartnershipCommand{CallerID: redeemer, PartnershipID: p.ID})
	require.NoError(t, err)

	_, err = f.repo.GetActiveByUser(context.Background(), inviter)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, f.events.types(), shared.EventPartnershipEnded)

	// Ending twice is a state conflict, not a silent no-op.
	err = handler.Handle(context.Background(), EndPartnershipCommand{CallerID: inviter, PartnershipID: p.ID})
	assert.Error(t, err)
}
