package expressions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/storage"
)

// BlobName is where expressions are kept in storage
const BlobName = "expressions.json"

// BlobRepository keeps all expressions in a single JSON blob mapping raw
// expression values to user IDs. It loads the blob once and writes through
// on every change.
type BlobRepository struct {
	storage storage.StorageInterface
	mu      sync.Mutex
	loaded  bool
	users   map[string]map[string]struct{} // raw value -> user IDs
}

// Ensure BlobRepository implements Repository
var _ Repository = (*BlobRepository)(nil)

// NewBlobRepository creates a repository on top of storage
func NewBlobRepository(storage storage.StorageInterface) *BlobRepository {
	return &BlobRepository{storage: storage}
}

func (r *BlobRepository) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	r.users = make(map[string]map[string]struct{})

	data, err := r.storage.Retrieve(ctx, BlobName)
	if errors.Is(err, storage.ErrNotFound) {
		logrus.Info("No stored expressions found, starting empty")
		r.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to retrieve expressions: %w", err)
	}

	var stored map[string][]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal expressions: %w", err)
	}

	for raw, userIDs := range stored {
		if _, err := Parse(raw); err != nil {
			logrus.Warnf("Skipping stored expression: %v", err)
			continue
		}
		set := make(map[string]struct{}, len(userIDs))
		for _, userID := range userIDs {
			set[userID] = struct{}{}
		}
		r.users[raw] = set
	}

	r.loaded = true
	return nil
}

func (r *BlobRepository) save(ctx context.Context) error {
	stored := make(map[string][]string, len(r.users))
	for raw, set := range r.users {
		stored[raw] = sortedKeys(set)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal expressions: %w", err)
	}

	return r.storage.Store(ctx, BlobName, data)
}

// GetAll returns every expression with the users watching it
func (r *BlobRepository) GetAll(ctx context.Context) (map[Expression][]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	all := make(map[Expression][]string, len(r.users))
	for raw, set := range r.users {
		expression, err := Parse(raw)
		if err != nil {
			continue
		}
		all[expression] = sortedKeys(set)
	}
	return all, nil
}

// Insert makes userID watch expression
func (r *BlobRepository) Insert(ctx context.Context, expression Expression, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}

	raw := expression.RawValue()
	set, exists := r.users[raw]
	if !exists {
		set = make(map[string]struct{})
		r.users[raw] = set
	}
	if _, watching := set[userID]; watching {
		return nil
	}
	set[userID] = struct{}{}

	if err := r.save(ctx); err != nil {
		delete(set, userID)
		if !exists {
			delete(r.users, raw)
		}
		return err
	}
	return nil
}

// Remove stops userID from watching expression
func (r *BlobRepository) Remove(ctx context.Context, expression Expression, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}

	raw := expression.RawValue()
	set, exists := r.users[raw]
	if !exists {
		return nil
	}
	if _, watching := set[userID]; !watching {
		return nil
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(r.users, raw)
	}

	if err := r.save(ctx); err != nil {
		set[userID] = struct{}{}
		r.users[raw] = set
		return err
	}
	return nil
}

// ExpressionsOf lists the expressions a user watches, sorted by raw value
func (r *BlobRepository) ExpressionsOf(ctx context.Context, userID string) ([]Expression, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	var raws []string
	for raw, set := range r.users {
		if _, watching := set[userID]; watching {
			raws = append(raws, raw)
		}
	}
	sort.Strings(raws)

	expressions := make([]Expression, 0, len(raws))
	for _, raw := range raws {
		if expression, err := Parse(raw); err == nil {
			expressions = append(expressions, expression)
		}
	}
	return expressions, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
