package seller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
)

// Store is a seller's marketplace store. Reports bucket days in its timezone.
type Store struct {
	ID        uuid.UUID
	Name      string
	Timezone  string
	CreatedAt time.Time
}

// NewStore creates a store
func NewStore(name, timezone string) (*Store, error) {
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Store name cannot be empty")
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown timezone: "+timezone)
		}
	}
	return &Store{ID: uuid.New(), Name: name, Timezone: timezone, CreatedAt: time.Now()}, nil
}

// Location returns the store's timezone, or fallback when unset or unknown
func (s *Store) Location(fallback *time.Location) *time.Location {
	if s.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// StoreRepository defines the interface for store persistence
type StoreRepository interface {
	// FindByID returns shared.ErrStoreNotFound when the store does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Store, error)

	// FindAll returns every store ordered by creation time
	FindAll(ctx context.Context) ([]*Store, error)

	// Save creates or updates a store
	Save(ctx context.Context, store *Store) error
}
