package request

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devconnect/internal/errs"
	"devconnect/internal/notify"
	"devconnect/internal/user"
)

type pairKey struct{ from, to uuid.UUID }

// fakeLedger mimics the store-level invariants: ordered-pair uniqueness and
// the conditional settle.
type fakeLedger struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*ConnectionRequest
	byPair   map[pairKey]uuid.UUID
	involved []Connection
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		byID:   make(map[uuid.UUID]*ConnectionRequest),
		byPair: make(map[pairKey]uuid.UUID),
	}
}

func (f *fakeLedger) Create(_ context.Context, req *ConnectionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{req.FromUserID, req.ToUserID}
	if _, exists := f.byPair[key]; exists {
		return errs.AlreadyExists("connection request already exists")
	}
	now := time.Now()
	req.CreatedAt, req.UpdatedAt = now, now
	cp := *req
	f.byID[req.ID] = &cp
	f.byPair[key] = req.ID
	return nil
}

func (f *fakeLedger) GetByID(_ context.Context, id uuid.UUID) (*ConnectionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.byID[id]
	if !ok {
		return nil, errs.NotFound("connection request not found")
	}
	cp := *req
	return &cp, nil
}

func (f *fakeLedger) SettleIfInterested(_ context.Context, id uuid.UUID, status Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.byID[id]
	if !ok || req.Status != StatusInterested {
		return false, nil
	}
	req.Status = status
	req.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeLedger) ListReceived(_ context.Context, toUserID uuid.UUID, status *Status, limit, offset int) ([]ReceivedRequest, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []ReceivedRequest
	for _, req := range f.byID {
		if req.ToUserID != toUserID {
			continue
		}
		if status != nil && req.Status != *status {
			continue
		}
		all = append(all, ReceivedRequest{ID: req.ID, Status: req.Status, CreatedAt: req.CreatedAt})
	}
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeLedger) ListInvolving(_ context.Context, _ uuid.UUID) ([]Connection, error) {
	return f.involved, nil
}

type fakeDirectory struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newFakeDirectory(users ...*user.User) *fakeDirectory {
	d := &fakeDirectory{users: make(map[uuid.UUID]*user.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, errs.NotFound("user not found")
	}
	return u, nil
}

type capturingNotifier struct {
	events chan notify.ConnectionEvent
}

func newCapturingNotifier() *capturingNotifier {
	return &capturingNotifier{events: make(chan notify.ConnectionEvent, 8)}
}

func (n *capturingNotifier) ConnectionUpdate(_ context.Context, ev notify.ConnectionEvent) error {
	n.events <- ev
	return nil
}

func (n *capturingNotifier) PendingReminder(context.Context, string, int) error { return nil }

func newTestService(ledger Ledger, dir Directory, notifier notify.Notifier) *Service {
	return NewService(ledger, dir, notifier, nil, zerolog.Nop())
}

func TestSend(t *testing.T) {
	alice := &user.User{ID: uuid.New(), FirstName: "Alice", Email: "alice@dev.io"}
	bob := &user.User{ID: uuid.New(), FirstName: "Bob", Email: "bob@dev.io"}

	t.Run("creates an interested request and notifies", func(t *testing.T) {
		notifier := newCapturingNotifier()
		svc := newTestService(newFakeLedger(), newFakeDirectory(alice, bob), notifier)

		req, err := svc.Send(context.Background(), alice.ID, bob.ID, "interested")
		require.NoError(t, err)
		assert.Equal(t, StatusInterested, req.Status)
		assert.Equal(t, alice.ID, req.FromUserID)
		assert.Equal(t, bob.ID, req.ToUserID)

		select {
		case ev := <-notifier.events:
			assert.Equal(t, "Alice interested the connection with Bob", ev.Message)
			assert.Equal(t, "bob@dev.io", ev.ToEmail)
		case <-time.After(time.Second):
			t.Fatal("expected a notification")
		}
	})

	t.Run("rejects self request", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), newFakeDirectory(alice, bob), newCapturingNotifier())

		_, err := svc.Send(context.Background(), alice.ID, alice.ID, "interested")
		assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
	})

	t.Run("rejects review statuses at creation", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), newFakeDirectory(alice, bob), newCapturingNotifier())

		for _, status := range []string{"accepted", "rejected", "bogus", ""} {
			_, err := svc.Send(context.Background(), alice.ID, bob.ID, status)
			assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err), "status %q", status)
		}
	})

	t.Run("rejects unknown target", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), newFakeDirectory(alice), newCapturingNotifier())

		_, err := svc.Send(context.Background(), alice.ID, uuid.New(), "interested")
		assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
	})

	t.Run("duplicate ordered pair conflicts regardless of status", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), newFakeDirectory(alice, bob), newCapturingNotifier())

		_, err := svc.Send(context.Background(), alice.ID, bob.ID, "ignored")
		require.NoError(t, err)

		// no re-send after ignoring, with either status
		for _, status := range []string{"interested", "ignored"} {
			_, err = svc.Send(context.Background(), alice.ID, bob.ID, status)
			assert.Equal(t, errs.CodeAlreadyExists, errs.CodeOf(err), "status %q", status)
		}
	})

	t.Run("reverse direction is a separate record", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), newFakeDirectory(alice, bob), newCapturingNotifier())

		_, err := svc.Send(context.Background(), alice.ID, bob.ID, "interested")
		require.NoError(t, err)
		_, err = svc.Send(context.Background(), bob.ID, alice.ID, "interested")
		require.NoError(t, err)
	})
}

func TestReview(t *testing.T) {
	alice := &user.User{ID: uuid.New(), FirstName: "Alice", Email: "alice@dev.io"}
	bob := &user.User{ID: uuid.New(), FirstName: "Bob", Email: "bob@dev.io"}

	setup := func(t *testing.T, initial Status) (*Service, *ConnectionRequest) {
		t.Helper()
		svc := newTestService(newFakeLedger(), newFakeDirectory(alice, bob), newCapturingNotifier())
		req, err := svc.Send(context.Background(), alice.ID, bob.ID, string(initial))
		require.NoError(t, err)
		return svc, req
	}

	t.Run("recipient accepts an interested request", func(t *testing.T) {
		svc, req := setup(t, StatusInterested)

		reviewed, err := svc.Review(context.Background(), bob.ID, req.ID, "accepted")
		require.NoError(t, err)
		assert.Equal(t, StatusAccepted, reviewed.Status)
	})

	t.Run("sender cannot review", func(t *testing.T) {
		svc, req := setup(t, StatusInterested)

		_, err := svc.Review(context.Background(), alice.ID, req.ID, "accepted")
		assert.Equal(t, errs.CodePermissionDenied, errs.CodeOf(err))
	})

	t.Run("ignored requests are not reviewable", func(t *testing.T) {
		svc, req := setup(t, StatusIgnored)

		_, err := svc.Review(context.Background(), bob.ID, req.ID, "accepted")
		assert.Equal(t, errs.CodeAlreadyExists, errs.CodeOf(err))
	})

	t.Run("second review conflicts", func(t *testing.T) {
		svc, req := setup(t, StatusInterested)

		_, err := svc.Review(context.Background(), bob.ID, req.ID, "rejected")
		require.NoError(t, err)
		_, err = svc.Review(context.Background(), bob.ID, req.ID, "accepted")
		assert.Equal(t, errs.CodeAlreadyExists, errs.CodeOf(err))
	})

	t.Run("unknown request id", func(t *testing.T) {
		svc, _ := setup(t, StatusInterested)

		_, err := svc.Review(context.Background(), bob.ID, uuid.New(), "accepted")
		assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
	})

	t.Run("invalid review status", func(t *testing.T) {
		svc, req := setup(t, StatusInterested)

		_, err := svc.Review(context.Background(), bob.ID, req.ID, "ignored")
		assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
	})

	t.Run("concurrent reviews: exactly one wins", func(t *testing.T) {
		svc, req := setup(t, StatusInterested)

		results := make(chan error, 2)
		var wg sync.WaitGroup
		for _, status := range []string{"accepted", "rejected"} {
			wg.Add(1)
			go func(status string) {
				defer wg.Done()
				_, err := svc.Review(context.Background(), bob.ID, req.ID, status)
				results <- err
			}(status)
		}
		wg.Wait()
		close(results)

		var wins, conflicts int
		for err := range results {
			if err == nil {
				wins++
			} else if errs.CodeOf(err) == errs.CodeAlreadyExists {
				conflicts++
			} else {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, 1, conflicts)

		final, err := svc.repo.GetByID(context.Background(), req.ID)
		require.NoError(t, err)
		assert.Contains(t, []Status{StatusAccepted, StatusRejected}, final.Status)
	})
}

func TestListReceived(t *testing.T) {
	alice := &user.User{ID: uuid.New(), FirstName: "Alice", Email: "alice@dev.io"}
	bob := &user.User{ID: uuid.New(), FirstName: "Bob", Email: "bob@dev.io"}

	t.Run("recipient sees the pending request", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), newFakeDirectory(alice, bob), newCapturingNotifier())
		sent, err := svc.Send(context.Background(), alice.ID, bob.ID, "interested")
		require.NoError(t, err)

		items, pagination, err := svc.ListReceived(context.Background(), bob.ID, "", 1, 10)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, sent.ID, items[0].ID)
		assert.Equal(t, StatusInterested, items[0].Status)
		assert.Equal(t, 1, pagination.Total)
	})

	t.Run("invalid pagination", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), newFakeDirectory(alice, bob), newCapturingNotifier())

		_, _, err := svc.ListReceived(context.Background(), bob.ID, "", -1, 10)
		assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))

		_, _, err = svc.ListReceived(context.Background(), bob.ID, "", 1, -5)
		assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
	})

	t.Run("invalid status filter", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), newFakeDirectory(alice, bob), newCapturingNotifier())

		_, _, err := svc.ListReceived(context.Background(), bob.ID, "bogus", 1, 10)
		assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
	})
}

func TestConnections(t *testing.T) {
	ledger := newFakeLedger()
	me := uuid.New()
	other := user.Public{ID: uuid.New(), FirstName: "Bob"}
	ledger.involved = []Connection{
		{User: other, ConnectionID: uuid.New(), Status: StatusAccepted, IsSender: true},
		{User: other, ConnectionID: uuid.New(), Status: StatusInterested, IsSender: false},
		{User: other, ConnectionID: uuid.New(), Status: StatusRejected, IsSender: false},
	}
	svc := newTestService(ledger, newFakeDirectory(), newCapturingNotifier())

	buckets, err := svc.Connections(context.Background(), me)
	require.NoError(t, err)
	assert.Len(t, buckets.Accepted, 1)
	assert.Len(t, buckets.Interested, 1)
	assert.Len(t, buckets.Rejected, 1)
	assert.Empty(t, buckets.Ignored)
	assert.True(t, buckets.Accepted[0].IsSender)
	assert.False(t, buckets.Interested[0].IsSender)
}
