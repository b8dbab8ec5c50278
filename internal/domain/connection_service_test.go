package domain

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type connectionFixture struct {
	svc      *ConnectionService
	repo     *memConnections
	members  *memMembers
	notifier *recordingNotifier

	alice, bob, carol *Member
}

func newConnectionFixture(t *testing.T) *connectionFixture {
	t.Helper()
	f := &connectionFixture{
		repo:     newMemConnections(),
		members:  newMemMembers(),
		notifier: &recordingNotifier{},
	}
	f.alice = f.members.add("Alice")
	f.bob = f.members.add("Bob")
	f.carol = f.members.add("Carol")
	f.svc = NewConnectionService(f.repo, f.members, f.notifier, nil)
	return f
}

func requireKind(t *testing.T, err error, kind ErrorKind, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err))
	if msg != "" {
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, msg, e.Message)
	}
}

func TestSendRequest(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture(t)

	req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, req.SenderID)
	assert.Equal(t, f.bob.ID, req.ReceiverID)
	assert.Equal(t, ConnectionStatusPending, req.Status)

	require.Len(t, f.notifier.requested, 1)
	assert.Equal(t, req.ID, f.notifier.requested[0].ID)
}

func TestSendRequestRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("self", func(t *testing.T) {
		f := newConnectionFixture(t)
		_, err := f.svc.SendRequest(ctx, f.alice.ID, f.alice.ID)
		requireKind(t, err, KindInvalidTarget, msgSelfRequest)
		assert.Zero(t, f.repo.count())
	})

	t.Run("unknown receiver", func(t *testing.T) {
		f := newConnectionFixture(t)
		_, err := f.svc.SendRequest(ctx, f.alice.ID, uuid.New())
		requireKind(t, err, KindNotFound, msgMemberNotFound)
	})

	t.Run("receiver not approved", func(t *testing.T) {
		f := newConnectionFixture(t)
		_, err := f.members.UpdateMemberStatus(ctx, f.bob.ID, MemberStatusSuspended)
		require.NoError(t, err)
		_, err = f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		requireKind(t, err, KindNotFound, msgMemberNotFound)
	})

	t.Run("pending same direction", func(t *testing.T) {
		f := newConnectionFixture(t)
		_, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		_, err = f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		requireKind(t, err, KindConflict, msgAlreadyPending)
	})

	t.Run("pending reverse direction", func(t *testing.T) {
		f := newConnectionFixture(t)
		_, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		_, err = f.svc.SendRequest(ctx, f.bob.ID, f.alice.ID)
		requireKind(t, err, KindConflict, msgAlreadyPending)
		assert.Equal(t, 1, f.repo.count())
	})

	t.Run("already connected", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		_, err = f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
		require.NoError(t, err)

		_, err = f.svc.SendRequest(ctx, f.bob.ID, f.alice.ID)
		requireKind(t, err, KindConflict, msgAlreadyConnected)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newConnectionFixture(t)
		f.repo.err = errStoreDown
		_, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		requireKind(t, err, KindInternal, "")
		assert.ErrorIs(t, err, errStoreDown)
	})
}

func TestSendRequestInsertConflictAfterCheck(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture(t)

	req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
	require.NoError(t, err)

	// The pre-insert check misses the live row; the pair constraint still rejects it.
	f.repo.skipLiveCheck = true
	_, err = f.svc.SendRequest(ctx, f.bob.ID, f.alice.ID)
	requireKind(t, err, KindConflict, msgAlreadyPending)
	assert.Equal(t, 1, f.repo.count())
}

// vanishedMemberConnections fails inserts the way the foreign key does once a
// member row is gone.
type vanishedMemberConnections struct {
	*memConnections
}

func (vanishedMemberConnections) CreateConnectionRequest(context.Context, uuid.UUID, uuid.UUID) (*ConnectionRequest, error) {
	return nil, fmt.Errorf("insert connection request: %w", ErrNotFound)
}

func TestSendRequestReceiverRemovedBeforeInsert(t *testing.T) {
	f := newConnectionFixture(t)
	svc := NewConnectionService(vanishedMemberConnections{f.repo}, f.members, nil, nil)

	_, err := svc.SendRequest(context.Background(), f.alice.ID, f.bob.ID)
	requireKind(t, err, KindNotFound, msgMemberNotFound)
	assert.Zero(t, f.repo.count())
}

// Concurrent sends for one pair race between the live check and the insert. The
// unique constraint on the unordered pair is what guarantees a single winner.
func TestSendRequestConcurrentSamePairHasOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture(t)

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		sender, receiver := f.alice.ID, f.bob.ID
		if i%2 == 1 {
			sender, receiver = receiver, sender
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.SendRequest(ctx, sender, receiver)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case KindOf(err) == KindConflict:
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, f.repo.count())
}

func TestAcceptRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("receiver accepts", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)

		accepted, err := f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
		require.NoError(t, err)
		assert.Equal(t, ConnectionStatusAccepted, accepted.Status)
		assert.True(t, accepted.UpdatedAt.After(req.UpdatedAt))
		require.Len(t, f.notifier.accepted, 1)
		assert.Equal(t, f.alice.ID, f.notifier.accepted[0].SenderID)
	})

	t.Run("sender cannot accept", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)

		_, err = f.svc.AcceptRequest(ctx, f.alice.ID, req.ID)
		requireKind(t, err, KindForbidden, msgNotAllowed)

		stored, err := f.repo.GetConnectionRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, ConnectionStatusPending, stored.Status)
	})

	t.Run("third party cannot accept", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		_, err = f.svc.AcceptRequest(ctx, f.carol.ID, req.ID)
		requireKind(t, err, KindForbidden, msgNotAllowed)
	})

	t.Run("already accepted", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		_, err = f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
		require.NoError(t, err)
		_, err = f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
		requireKind(t, err, KindForbidden, msgNotAllowed)
	})

	t.Run("unknown request", func(t *testing.T) {
		f := newConnectionFixture(t)
		_, err := f.svc.AcceptRequest(ctx, f.bob.ID, uuid.New())
		requireKind(t, err, KindNotFound, msgRequestNotFound)
	})

	t.Run("cancelled request", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		require.NoError(t, f.svc.CancelRequest(ctx, f.alice.ID, req.ID))

		_, err = f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
		requireKind(t, err, KindNotFound, msgRequestNotFound)
	})
}

func TestDeclineRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("receiver declines", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)

		declined, err := f.svc.DeclineRequest(ctx, f.bob.ID, req.ID)
		require.NoError(t, err)
		assert.Equal(t, ConnectionStatusDeclined, declined.Status)
		assert.Empty(t, f.notifier.accepted)
	})

	t.Run("decline after accept", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		_, err = f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
		require.NoError(t, err)

		_, err = f.svc.DeclineRequest(ctx, f.bob.ID, req.ID)
		requireKind(t, err, KindForbidden, msgNotAllowed)

		stored, err := f.repo.GetConnectionRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, ConnectionStatusAccepted, stored.Status)
	})

	t.Run("sender cannot decline", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		_, err = f.svc.DeclineRequest(ctx, f.alice.ID, req.ID)
		requireKind(t, err, KindForbidden, msgNotAllowed)
	})
}

// A declined request no longer blocks the pair, so either side may ask again.
func TestRequestAfterDeclineIsAllowed(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture(t)

	first, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.DeclineRequest(ctx, f.bob.ID, first.ID)
	require.NoError(t, err)

	second, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	_, err = f.svc.DeclineRequest(ctx, f.bob.ID, second.ID)
	require.NoError(t, err)

	third, err := f.svc.SendRequest(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ConnectionStatusPending, third.Status)

	// declined rows are kept
	assert.Equal(t, 3, f.repo.count())
}

func TestCancelRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("sender cancels", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)

		require.NoError(t, f.svc.CancelRequest(ctx, f.alice.ID, req.ID))
		_, err = f.repo.GetConnectionRequest(ctx, req.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		// the pair is free again
		_, err = f.svc.SendRequest(ctx, f.bob.ID, f.alice.ID)
		require.NoError(t, err)
	})

	t.Run("receiver cannot cancel", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		err = f.svc.CancelRequest(ctx, f.bob.ID, req.ID)
		requireKind(t, err, KindForbidden, msgNotAllowed)
	})

	t.Run("accepted cannot be cancelled", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		_, err = f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
		require.NoError(t, err)

		err = f.svc.CancelRequest(ctx, f.alice.ID, req.ID)
		requireKind(t, err, KindForbidden, msgNotAllowed)
	})

	t.Run("twice", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		require.NoError(t, f.svc.CancelRequest(ctx, f.alice.ID, req.ID))
		err = f.svc.CancelRequest(ctx, f.alice.ID, req.ID)
		requireKind(t, err, KindNotFound, msgRequestNotFound)
	})
}

func TestRemoveConnection(t *testing.T) {
	ctx := context.Background()

	connect := func(t *testing.T, f *connectionFixture) *ConnectionRequest {
		t.Helper()
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		accepted, err := f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
		require.NoError(t, err)
		return accepted
	}

	t.Run("sender removes", func(t *testing.T) {
		f := newConnectionFixture(t)
		req := connect(t, f)
		require.NoError(t, f.svc.RemoveConnection(ctx, f.alice.ID, req.ID))
		assert.Zero(t, f.repo.count())
	})

	t.Run("receiver removes", func(t *testing.T) {
		f := newConnectionFixture(t)
		req := connect(t, f)
		require.NoError(t, f.svc.RemoveConnection(ctx, f.bob.ID, req.ID))

		views, err := f.svc.ListMyConnections(ctx, f.alice.ID, Page{})
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("third party", func(t *testing.T) {
		f := newConnectionFixture(t)
		req := connect(t, f)
		err := f.svc.RemoveConnection(ctx, f.carol.ID, req.ID)
		requireKind(t, err, KindForbidden, msgNotAllowed)
		assert.Equal(t, 1, f.repo.count())
	})

	t.Run("pending cannot be removed", func(t *testing.T) {
		f := newConnectionFixture(t)
		req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
		require.NoError(t, err)
		err = f.svc.RemoveConnection(ctx, f.alice.ID, req.ID)
		requireKind(t, err, KindForbidden, msgNotAllowed)
	})

	t.Run("unknown", func(t *testing.T) {
		f := newConnectionFixture(t)
		err := f.svc.RemoveConnection(ctx, f.alice.ID, uuid.New())
		requireKind(t, err, KindNotFound, msgRequestNotFound)
	})
}

func TestListConnections(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture(t)
	dave := f.members.add("Dave")

	// alice <-> bob accepted, carol -> alice pending, alice -> dave pending
	ab, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.AcceptRequest(ctx, f.bob.ID, ab.ID)
	require.NoError(t, err)
	ca, err := f.svc.SendRequest(ctx, f.carol.ID, f.alice.ID)
	require.NoError(t, err)
	ad, err := f.svc.SendRequest(ctx, f.alice.ID, dave.ID)
	require.NoError(t, err)

	t.Run("my connections from both sides", func(t *testing.T) {
		forAlice, err := f.svc.ListMyConnections(ctx, f.alice.ID, Page{})
		require.NoError(t, err)
		require.Len(t, forAlice, 1)
		assert.Equal(t, f.bob.ID, forAlice[0].MemberID)
		assert.Equal(t, DirectionSent, forAlice[0].Direction)
		require.NotNil(t, forAlice[0].Member)
		assert.Equal(t, "Bob", forAlice[0].Member.Name)

		forBob, err := f.svc.ListMyConnections(ctx, f.bob.ID, Page{})
		require.NoError(t, err)
		require.Len(t, forBob, 1)
		assert.Equal(t, ab.ID, forBob[0].ID)
		assert.Equal(t, f.alice.ID, forBob[0].MemberID)
		assert.Equal(t, DirectionReceived, forBob[0].Direction)
	})

	t.Run("sent pending", func(t *testing.T) {
		views, err := f.svc.ListSentPending(ctx, f.alice.ID, Page{})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, ad.ID, views[0].ID)
		assert.Equal(t, dave.ID, views[0].MemberID)
		assert.Equal(t, ConnectionStatusPending, views[0].Status)
	})

	t.Run("received pending", func(t *testing.T) {
		views, err := f.svc.ListReceivedPending(ctx, f.alice.ID, Page{})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, ca.ID, views[0].ID)
		assert.Equal(t, f.carol.ID, views[0].MemberID)
		assert.Equal(t, DirectionReceived, views[0].Direction)
	})

	t.Run("received pending for the target", func(t *testing.T) {
		views, err := f.svc.ListReceivedPending(ctx, dave.ID, Page{})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, ad.ID, views[0].ID)
		assert.Equal(t, f.alice.ID, views[0].MemberID)
	})

	t.Run("empty listing is not nil", func(t *testing.T) {
		erin := f.members.add("Erin")
		views, err := f.svc.ListReceivedPending(ctx, erin.ID, Page{})
		require.NoError(t, err)
		assert.NotNil(t, views)
		assert.Empty(t, views)
	})

	t.Run("paging", func(t *testing.T) {
		views, err := f.svc.ListSentPending(ctx, f.alice.ID, Page{Limit: 10, Offset: 5})
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture(t)
	f.notifier.err = errStoreDown

	req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
	require.NoError(t, err)

	assert.Len(t, f.notifier.requested, 1)
	assert.Len(t, f.notifier.accepted, 1)
}

func TestNilNotifier(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture(t)
	svc := NewConnectionService(f.repo, f.members, nil, nil)

	req, err := svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, f.bob.ID, req.ID)
	require.NoError(t, err)
}

// interleavedConnections runs interleave between the service's read and its
// conditional write, standing in for a concurrent caller.
type interleavedConnections struct {
	*memConnections
	interleave func(id uuid.UUID)
}

func (r *interleavedConnections) UpdateConnectionStatus(ctx context.Context, id uuid.UUID, from, to ConnectionStatus) (*ConnectionRequest, error) {
	r.interleave(id)
	return r.memConnections.UpdateConnectionStatus(ctx, id, from, to)
}

func (r *interleavedConnections) DeleteConnectionRequest(ctx context.Context, id uuid.UUID, status ConnectionStatus) error {
	r.interleave(id)
	return r.memConnections.DeleteConnectionRequest(ctx, id, status)
}

func TestConcurrentTransitionLosers(t *testing.T) {
	ctx := context.Background()

	setStatus := func(m *memConnections, status ConnectionStatus) func(uuid.UUID) {
		return func(id uuid.UUID) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.reqs[id].Status = status
		}
	}
	purge := func(m *memConnections) func(uuid.UUID) {
		return func(id uuid.UUID) {
			_ = m.PurgeConnectionRequest(ctx, id)
		}
	}

	tests := []struct {
		name string
		// racer is applied between load and write
		racer func(m *memConnections) func(uuid.UUID)
		act   func(svc *ConnectionService, f *connectionFixture, id uuid.UUID) error
		kind  ErrorKind
	}{
		{
			name:  "accept loses to decline",
			racer: func(m *memConnections) func(uuid.UUID) { return setStatus(m, ConnectionStatusDeclined) },
			act: func(svc *ConnectionService, f *connectionFixture, id uuid.UUID) error {
				_, err := svc.AcceptRequest(ctx, f.bob.ID, id)
				return err
			},
			kind: KindForbidden,
		},
		{
			name:  "accept loses to cancel",
			racer: purge,
			act: func(svc *ConnectionService, f *connectionFixture, id uuid.UUID) error {
				_, err := svc.AcceptRequest(ctx, f.bob.ID, id)
				return err
			},
			kind: KindNotFound,
		},
		{
			name:  "cancel loses to accept",
			racer: func(m *memConnections) func(uuid.UUID) { return setStatus(m, ConnectionStatusAccepted) },
			act: func(svc *ConnectionService, f *connectionFixture, id uuid.UUID) error {
				return svc.CancelRequest(ctx, f.alice.ID, id)
			},
			kind: KindForbidden,
		},
		{
			name:  "cancel loses to cancel",
			racer: purge,
			act: func(svc *ConnectionService, f *connectionFixture, id uuid.UUID) error {
				return svc.CancelRequest(ctx, f.alice.ID, id)
			},
			kind: KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConnectionFixture(t)
			req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
			require.NoError(t, err)

			repo := &interleavedConnections{memConnections: f.repo, interleave: tt.racer(f.repo)}
			svc := NewConnectionService(repo, f.members, f.notifier, nil)

			err = tt.act(svc, f, req.ID)
			requireKind(t, err, tt.kind, "")
		})
	}
}

func TestConcurrentAcceptAndDeclineOneWins(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture(t)
	req, err := f.svc.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.svc.AcceptRequest(ctx, f.bob.ID, req.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.svc.DeclineRequest(ctx, f.bob.ID, req.ID)
	}()
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.Equal(t, KindForbidden, KindOf(err))
		}
	}
	assert.Equal(t, 1, wins)
}
