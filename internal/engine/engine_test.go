package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/iliyamo/estate-market/internal/model"
	"github.com/iliyamo/estate-market/internal/policy"
	"github.com/iliyamo/estate-market/internal/repository"
	"github.com/iliyamo/estate-market/internal/workflow"
)

// The fakes below mirror the contracts the MySQL repositories honour:
// InsertListing bumps the owner's lifetime counter in the same critical
// section, UpdateStatus is a compare-and-swap, and RecordView treats the
// (listing, device) pair as the serialization point.

type fakeStore struct {
	mu       sync.Mutex
	userSeq  uint64
	users    map[uint64]model.User
	seq      uint64
	listings map[uint64]model.Listing
	seen     map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uint64]model.User),
		listings: make(map[uint64]model.Listing),
		seen:     make(map[string]bool),
	}
}

func (s *fakeStore) addUser(role policy.Role) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userSeq++
	s.users[s.userSeq] = model.User{ID: s.userSeq, Role: role}
	return s.userSeq
}

func (s *fakeStore) GetUser(ctx context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeStore) GetListing(ctx context.Context, id uint64) (model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return model.Listing{}, repository.ErrListingNotFound
	}
	return l, nil
}

func (s *fakeStore) InsertListing(ctx context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	l.ID = s.seq
	s.listings[l.ID] = *l
	u := s.users[l.OwnerID]
	u.ListingsCreated++
	s.users[l.OwnerID] = u
	return nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id uint64, from, to workflow.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok || l.Status != from {
		return false, nil
	}
	l.Status = to
	s.listings[id] = l
	return true, nil
}

func (s *fakeStore) RecordView(ctx context.Context, listingID uint64, deviceID string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[listingID]
	if !ok {
		return 0, false, repository.ErrListingNotFound
	}
	key := fmt.Sprintf("%d|%s", listingID, deviceID)
	if s.seen[key] {
		return l.Views, true, nil
	}
	s.seen[key] = true
	l.Views++
	s.listings[listingID] = l
	return l.Views, false, nil
}

func newTestEngine() (*Engine, *fakeStore) {
	s := newFakeStore()
	return New(s, s, s), s
}

func draft(price int64) model.Listing {
	return model.Listing{Title: "two-room flat", City: "Almaty", OfferType: "sale", RegularPrice: price, Currency: "USD"}
}

func TestCreateListingStartsActive(t *testing.T) {
	eng, s := newTestEngine()
	owner := s.addUser(policy.RoleUser)

	l, err := eng.CreateListing(context.Background(), owner, draft(9000), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.Status != workflow.StatusActive {
		t.Fatalf("status = %q, want active", l.Status)
	}
	if l.Commission != 0 {
		t.Fatalf("commission = %d, want 0", l.Commission)
	}
	if l.OwnerID != owner || l.ID == 0 {
		t.Fatalf("listing not persisted correctly: %+v", l)
	}
}

func TestCreateListingHighValueRouting(t *testing.T) {
	eng, s := newTestEngine()
	owner := s.addUser(policy.RoleUser)
	ctx := context.Background()

	// Without opting into the approval path the gate refuses.
	_, err := eng.CreateListing(ctx, owner, draft(20000), false)
	var pe *policy.PriceCeilingError
	if !errors.As(err, &pe) {
		t.Fatalf("want PriceCeilingError, got %v", err)
	}

	// Through the approval path the listing lands in the pending queue
	// with the informational commission attached.
	l, err := eng.CreateListing(ctx, owner, draft(20000), true)
	if err != nil {
		t.Fatalf("create via approval: %v", err)
	}
	if l.Status != workflow.StatusPending {
		t.Fatalf("status = %q, want pending", l.Status)
	}
	if l.Commission != 600 {
		t.Fatalf("commission = %d, want 600", l.Commission)
	}
}

func TestQuotaCountsDeletedListings(t *testing.T) {
	eng, s := newTestEngine()
	owner := s.addUser(policy.RoleUser)
	ctx := context.Background()

	var last model.Listing
	for i := 0; i < 3; i++ {
		l, err := eng.CreateListing(ctx, owner, draft(5000), false)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		last = l
	}
	// Soft-deleting does not free a quota slot.
	if err := eng.SoftDelete(ctx, last.ID, owner, policy.RoleUser); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	_, err := eng.CreateListing(ctx, owner, draft(5000), false)
	var qe *policy.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("want QuotaExceededError after delete, got %v", err)
	}
	if qe.Count != 3 {
		t.Fatalf("count = %d, want 3 (deleted listings included)", qe.Count)
	}
}

func TestAgentUnlimitedListings(t *testing.T) {
	eng, s := newTestEngine()
	owner := s.addUser(policy.RoleAgent)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if _, err := eng.CreateListing(ctx, owner, draft(50000), false); err != nil {
			t.Fatalf("agent create %d: %v", i, err)
		}
	}
}

func TestTransitionStatusModeration(t *testing.T) {
	eng, s := newTestEngine()
	owner := s.addUser(policy.RoleUser)
	admin := s.addUser(policy.RoleAdmin)
	ctx := context.Background()

	l, err := eng.CreateListing(ctx, owner, draft(20000), true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The owner may not approve their own submission.
	if _, err := eng.TransitionStatus(ctx, l.ID, owner, policy.RoleUser, workflow.TransitionApprove); !errors.Is(err, workflow.ErrForbidden) {
		t.Fatalf("owner approve: want ErrForbidden, got %v", err)
	}

	got, err := eng.TransitionStatus(ctx, l.ID, admin, policy.RoleAdmin, workflow.TransitionApprove)
	if err != nil {
		t.Fatalf("admin approve: %v", err)
	}
	if got.Status != workflow.StatusApproved {
		t.Fatalf("status = %q, want approved", got.Status)
	}

	// Approving again is an invalid edge, not a forbidden one.
	_, err = eng.TransitionStatus(ctx, l.ID, admin, policy.RoleAdmin, workflow.TransitionApprove)
	var ite *workflow.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("second approve: want InvalidTransitionError, got %v", err)
	}
}

// staleListings wedges one conditional write to simulate losing the race
// between validation and the status update.
type staleListings struct {
	ListingStore
	failOnce bool
}

func (s *staleListings) UpdateStatus(ctx context.Context, id uint64, from, to workflow.Status) (bool, error) {
	if s.failOnce {
		s.failOnce = false
		return false, nil
	}
	return s.ListingStore.UpdateStatus(ctx, id, from, to)
}

func TestTransitionStatusLostSwap(t *testing.T) {
	s := newFakeStore()
	owner := s.addUser(policy.RoleUser)
	eng := New(s, &staleListings{ListingStore: s, failOnce: true}, s)
	ctx := context.Background()

	l, err := eng.CreateListing(ctx, owner, draft(5000), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = eng.TransitionStatus(ctx, l.ID, owner, policy.RoleUser, workflow.TransitionWithdraw)
	var ite *workflow.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("lost swap: want InvalidTransitionError, got %v", err)
	}
	// The listing still holds its original status.
	cur, err := s.GetListing(ctx, l.ID)
	if err != nil || cur.Status != workflow.StatusActive {
		t.Fatalf("status after lost swap = %q (%v), want active", cur.Status, err)
	}
}

func TestSoftDeleteAuthorization(t *testing.T) {
	eng, s := newTestEngine()
	owner := s.addUser(policy.RoleUser)
	stranger := s.addUser(policy.RoleUser)
	admin := s.addUser(policy.RoleAdmin)
	ctx := context.Background()

	l, err := eng.CreateListing(ctx, owner, draft(5000), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := eng.SoftDelete(ctx, l.ID, stranger, policy.RoleUser); !errors.Is(err, workflow.ErrForbidden) {
		t.Fatalf("stranger delete: want ErrForbidden, got %v", err)
	}
	if err := eng.SoftDelete(ctx, l.ID, admin, policy.RoleAdmin); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	cur, _ := s.GetListing(ctx, l.ID)
	if cur.Status != workflow.StatusDeleted {
		t.Fatalf("status = %q, want deleted", cur.Status)
	}
}

func TestRecordViewDedup(t *testing.T) {
	eng, s := newTestEngine()
	owner := s.addUser(policy.RoleUser)
	ctx := context.Background()

	l, err := eng.CreateListing(ctx, owner, draft(5000), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := eng.RecordView(ctx, l.ID, "device-1")
	if err != nil || first.Views != 1 || first.AlreadyViewed {
		t.Fatalf("first view = %+v (%v), want views=1 fresh", first, err)
	}
	second, err := eng.RecordView(ctx, l.ID, "device-1")
	if err != nil || second.Views != 1 || !second.AlreadyViewed {
		t.Fatalf("repeat view = %+v (%v), want views=1 already", second, err)
	}
	other, err := eng.RecordView(ctx, l.ID, "device-2")
	if err != nil || other.Views != 2 || other.AlreadyViewed {
		t.Fatalf("second device = %+v (%v), want views=2 fresh", other, err)
	}
}

func TestRecordViewConcurrent(t *testing.T) {
	eng, s := newTestEngine()
	owner := s.addUser(policy.RoleUser)
	ctx := context.Background()

	l, err := eng.CreateListing(ctx, owner, draft(5000), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Many goroutines, two distinct devices: the count must settle at
	// exactly 2 with no lost updates, and each device must register fresh
	// exactly once.
	const perDevice = 16
	var wg sync.WaitGroup
	var freshCount int64
	var mu sync.Mutex
	for _, dev := range []string{"device-a", "device-b"} {
		for i := 0; i < perDevice; i++ {
			wg.Add(1)
			go func(dev string) {
				defer wg.Done()
				res, err := eng.RecordView(ctx, l.ID, dev)
				if err != nil {
					t.Errorf("record view: %v", err)
					return
				}
				if !res.AlreadyViewed {
					mu.Lock()
					freshCount++
					mu.Unlock()
				}
			}(dev)
		}
	}
	wg.Wait()

	cur, _ := s.GetListing(ctx, l.ID)
	if cur.Views != 2 {
		t.Fatalf("views = %d, want 2", cur.Views)
	}
	if freshCount != 2 {
		t.Fatalf("fresh views = %d, want exactly 2", freshCount)
	}
}

func TestRecordViewMissingListing(t *testing.T) {
	eng, _ := newTestEngine()
	_, err := eng.RecordView(context.Background(), 999, "device-1")
	if !NotFound(err) {
		t.Fatalf("want not-found sentinel, got %v", err)
	}
}

func TestIsPubliclyVisibleManagerExclusion(t *testing.T) {
	eng, s := newTestEngine()
	manager := s.addUser(policy.RoleManager)
	ctx := context.Background()

	// Managers have no ceiling, so their creations start active and
	// public.
	l, err := eng.CreateListing(ctx, manager, draft(50000), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	visible, err := eng.IsPubliclyVisible(ctx, l)
	if err != nil {
		t.Fatalf("visibility: %v", err)
	}
	if !visible {
		t.Fatal("active manager listing should be public")
	}

	// A manager listing sitting in moderation is excluded explicitly.
	if _, err := s.UpdateStatus(ctx, l.ID, workflow.StatusActive, workflow.StatusPending); err != nil {
		t.Fatalf("force pending: %v", err)
	}
	l.Status = workflow.StatusPending
	visible, err = eng.IsPubliclyVisible(ctx, l)
	if err != nil {
		t.Fatalf("visibility: %v", err)
	}
	if visible {
		t.Fatal("pending manager listing must not be public")
	}
}
