package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/campus/pkg/db/option"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means no row matched a tenant-scoped read.
	ErrNotFound = errors.New("not_found")
	// ErrAlreadyExists means a create collided with an existing primary key.
	// The stored row is left untouched.
	ErrAlreadyExists = errors.New("already_exists")
	// ErrNotFoundOrForbidden is returned when a conditional mutation matched
	// zero rows. Callers cannot tell "missing" from "not yours": the
	// ambiguity prevents existence probing across tenants and owners.
	ErrNotFoundOrForbidden = errors.New("not_found_or_forbidden")
	// ErrUnavailable means the store could not be reached; retryable with backoff.
	ErrUnavailable = errors.New("store_unavailable")
	// ErrColumnNotAllowed means a patch, counter, or parent column is not on
	// the store's allow-list.
	ErrColumnNotAllowed = errors.New("column_not_allowed")
)

// Base carries the columns every tenant-scoped entity shares. Embed it as the
// first field of a model struct.
type Base struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	TenantID  string    `gorm:"column:tenant_id;size:64;not null;index" json:"tenant_id"`
	AuthorID  string    `gorm:"column:author_id;size:64;not null" json:"author_id"`
	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Meta exposes the shared columns to the generic store.
func (b *Base) Meta() *Base { return b }

// Entity is any model embedding Base.
type Entity interface {
	Meta() *Base
}

// Pointer constrains P to *T implementing Entity.
type Pointer[T any] interface {
	*T
	Entity
}

// Store is a tenant-safe, versioned CRUD store over one entity kind.
// Every mutation is a single conditional statement: predicates are evaluated
// by the database at apply time, never by a read-then-write sequence.
type Store[T any] interface {
	// Get returns the entity, or ErrNotFound. No side effects.
	Get(ctx context.Context, tenantID, id string) (*T, error)

	// Create inserts the entity, setting created_at = updated_at and
	// version = 1. A primary-key collision yields ErrAlreadyExists.
	Create(ctx context.Context, resource *T) (*T, error)

	// Update applies an allow-listed column patch conditioned on tenant, id,
	// and (when ownerID is non-empty) author. Zero matched rows yield
	// ErrNotFoundOrForbidden. Bumps version by 1 and refreshes updated_at.
	// Extra opts tighten the predicate (e.g. expected version or status).
	Update(ctx context.Context, tenantID, id, ownerID string, patch map[string]any, opts ...option.QueryOption) (*T, error)

	// Delete removes the entity under the same conditional semantics as
	// Update. Deletion is hard.
	Delete(ctx context.Context, tenantID, id, ownerID string, opts ...option.QueryOption) error

	// QueryRecent returns entities newest-first using keyset pagination on
	// (created_at, id). The returned page info carries an opaque cursor iff
	// more rows exist.
	QueryRecent(ctx context.Context, tenantID string, page pagination.Pagination, opts ...option.QueryOption) ([]*T, *pagination.PageInfo, error)

	// QueryChildren returns entities under a parent, oldest-first.
	QueryChildren(ctx context.Context, tenantID, parentColumn, parentID string, limit int) ([]*T, error)

	// Increment atomically bumps an allow-listed counter column. It does not
	// touch version or updated_at: counters are advisory.
	Increment(ctx context.Context, tenantID, id, column string, delta int64) error

	// Count returns the number of rows in the tenant matching opts.
	Count(ctx context.Context, tenantID string, opts ...option.QueryOption) (int64, error)

	// WithTrx returns a store bound to the given transaction.
	WithTrx(tx *gorm.DB) Store[T]
}
