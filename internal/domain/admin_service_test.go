package domain

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMemberStatus(t *testing.T) {
	ctx := context.Background()
	members := newMemMembers()
	tokens := newMemAuth()
	svc := NewAdminService(members, tokens, newMemConnections())

	admin := members.add("Root")
	pending, err := members.CreateMember(ctx, CreateMemberParams{Email: "p@example.com", Name: "P", Status: MemberStatusPendingApproval})
	require.NoError(t, err)

	approved, err := svc.SetMemberStatus(ctx, admin.ID, pending.ID, MemberStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, MemberStatusApproved, approved.Status)

	_, err = tokens.CreateRefreshToken(ctx, CreateRefreshTokenParams{MemberID: pending.ID, TokenHash: "h1"})
	require.NoError(t, err)
	suspended, err := svc.SetMemberStatus(ctx, admin.ID, pending.ID, MemberStatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, MemberStatusSuspended, suspended.Status)
	assert.Zero(t, tokens.liveTokens(pending.ID))

	_, err = svc.SetMemberStatus(ctx, admin.ID, admin.ID, MemberStatusSuspended)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = svc.SetMemberStatus(ctx, admin.ID, uuid.New(), MemberStatusApproved)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = svc.SetMemberStatus(ctx, admin.ID, pending.ID, MemberStatus("archived"))
	assert.Equal(t, KindInvalid, KindOf(err))
}

func TestExportMembersCSV(t *testing.T) {
	ctx := context.Background()
	members := newMemMembers()
	svc := NewAdminService(members, newMemAuth(), newMemConnections())

	members.add("Ada")
	members.add("Grace")
	_, err := members.CreateMember(ctx, CreateMemberParams{Email: "p@example.com", Name: "Pending, Person", Status: MemberStatusPendingApproval})
	require.NoError(t, err)

	var buf bytes.Buffer
	approved := MemberStatusApproved
	require.NoError(t, svc.ExportMembersCSV(ctx, MemberFilter{Status: &approved}, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "id", rows[0][0])
	for _, row := range rows[1:] {
		assert.Equal(t, "approved", row[8])
	}

	buf.Reset()
	require.NoError(t, svc.ExportMembersCSV(ctx, MemberFilter{Query: "pending"}, &buf))
	rows, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Pending, Person", rows[1][1])
}

func TestAdminConnectionModeration(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture(t)
	svc := NewAdminService(f.members, newMemAuth(), f.repo)

	ab, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.AcceptRequest(ctx, f.bob.ID, ab.ID)
	require.NoError(t, err)
	_, err = f.svc.SendRequest(ctx, f.carol.ID, f.alice.ID)
	require.NoError(t, err)

	all, err := svc.ListConnectionRequests(ctx, nil, Page{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	accepted := ConnectionStatusAccepted
	only, err := svc.ListConnectionRequests(ctx, &accepted, Page{})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, ab.ID, only[0].ID)

	bogus := ConnectionStatus("blocked")
	_, err = svc.ListConnectionRequests(ctx, &bogus, Page{})
	assert.Equal(t, KindInvalid, KindOf(err))

	require.NoError(t, svc.DeleteConnectionRequest(ctx, ab.ID))
	err = svc.DeleteConnectionRequest(ctx, ab.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	// purging the accepted row frees the pair
	_, err = f.svc.SendRequest(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
}
