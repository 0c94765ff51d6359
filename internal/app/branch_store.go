package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"filiale-console/internal/cache"
	"filiale-console/internal/datasource"
	"filiale-console/internal/filter"
	"filiale-console/internal/model"
)

// Selection is the branch bound to a device. Branch is looked up by id against
// the live collection on every read, never copied into the store.
type Selection struct {
	BranchID string        `json:"selectedFilialeId,omitempty"`
	Branch   *model.Branch `json:"selectedFiliale"`
	Locked   bool          `json:"locked"`
}

// BranchStore owns the branch collection and the per-device selection.
type BranchStore struct {
	fetcher datasource.Fetcher
	store   cache.LocalStore
	log     *zap.Logger

	mu       sync.RWMutex
	loaded   bool
	branches []model.Branch
	loadErr  error
}

func NewBranchStore(fetcher datasource.Fetcher, store cache.LocalStore, log *zap.Logger) *BranchStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &BranchStore{fetcher: fetcher, store: store, log: log}
}

// Load fetches the collection on first use. Later calls return the same snapshot.
func (s *BranchStore) Load(ctx context.Context) ([]model.Branch, error) {
	s.mu.RLock()
	if s.loaded {
		branches, err := s.branches, s.loadErr
		s.mu.RUnlock()
		return branches, err
	}
	s.mu.RUnlock()
	return s.Reload(ctx)
}

// Reload replaces the collection. Selections keep pointing at ids, so a branch
// that disappears simply stops resolving.
func (s *BranchStore) Reload(ctx context.Context) ([]model.Branch, error) {
	branches, err := s.fetcher.Branches(ctx)
	if branches == nil {
		branches = []model.Branch{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches = branches
	s.loadErr = err
	s.loaded = true
	return s.branches, err
}

// Branches is the branch list screen: search only, never branch-scoped.
func (s *BranchStore) Branches(ctx context.Context, query string) ([]model.Branch, error) {
	branches, err := s.Load(ctx)
	return filter.Search(branches, query), err
}

func (s *BranchStore) Find(ctx context.Context, id string) (*model.Branch, bool) {
	if id == "" {
		return nil, false
	}
	branches, _ := s.Load(ctx)
	for i := range branches {
		if branches[i].ID == id {
			b := branches[i]
			return &b, true
		}
	}
	return nil, false
}

// Resolve computes the selection of a device. A user whose branch resolves is
// bound to it and the binding is persisted; everyone else gets the persisted
// selection if it still resolves.
func (s *BranchStore) Resolve(ctx context.Context, deviceID string, identity *model.Identity) Selection {
	if identity != nil && identity.Kind == model.KindUser {
		// A user only ever sees its own branch, never what the device kept.
		branch, ok := s.Find(ctx, identity.BranchID)
		if !ok {
			return Selection{Locked: true}
		}
		if err := s.store.Set(ctx, deviceID, cache.KeySelectedFilialID, branch.ID); err != nil {
			s.log.Warn("persist branch binding failed", zap.String("device_id", deviceID), zap.Error(err))
		}
		return Selection{BranchID: branch.ID, Branch: branch, Locked: true}
	}

	storedID, ok, err := s.store.Get(ctx, deviceID, cache.KeySelectedFilialID)
	if err != nil {
		s.log.Warn("read branch selection failed", zap.String("device_id", deviceID), zap.Error(err))
		return Selection{}
	}
	if !ok {
		return Selection{}
	}
	branch, found := s.Find(ctx, storedID)
	if !found {
		return Selection{}
	}
	return Selection{BranchID: branch.ID, Branch: branch}
}

// Select changes the selection of a device. An empty branchID clears it. A user
// may only re-select the branch it is bound to.
func (s *BranchStore) Select(ctx context.Context, deviceID string, identity *model.Identity, branchID string) (Selection, error) {
	if identity == nil {
		return Selection{}, ErrNotAuthenticated
	}
	branchID = strings.TrimSpace(branchID)

	if !identity.IsAdmin() {
		if branchID == "" || branchID != identity.BranchID {
			return Selection{}, ErrSelectionLocked
		}
		return s.Resolve(ctx, deviceID, identity), nil
	}

	if branchID == "" {
		if err := s.store.Remove(ctx, deviceID, cache.KeySelectedFilialID); err != nil {
			return Selection{}, fmt.Errorf("clear branch selection failed: %w", err)
		}
		return Selection{}, nil
	}

	branch, ok := s.Find(ctx, branchID)
	if !ok {
		return Selection{}, ErrBranchNotFound
	}
	if err := s.store.Set(ctx, deviceID, cache.KeySelectedFilialID, branch.ID); err != nil {
		return Selection{}, fmt.Errorf("persist branch selection failed: %w", err)
	}
	s.log.Debug("branch selected", zap.String("device_id", deviceID), zap.String("branch_id", branch.ID))
	return Selection{BranchID: branch.ID, Branch: branch}, nil
}
