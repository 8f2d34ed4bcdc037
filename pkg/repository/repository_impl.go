package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/campus/pkg/db"
	"github.com/smallbiznis/campus/pkg/db/option"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"gorm.io/gorm"
)

// Config declares the columns a store accepts beyond the Base set.
type Config struct {
	// PatchColumns are the columns Update may modify.
	PatchColumns []string
	// CounterColumns are the columns Increment may bump.
	CounterColumns []string
	// ParentColumns are the columns QueryChildren may key on.
	ParentColumns []string
}

type store[T any, P Pointer[T]] struct {
	db  *gorm.DB
	cfg Config

	patch    map[string]struct{}
	counters map[string]struct{}
	parents  map[string]struct{}
}

// ProvideStore builds a tenant-scoped store for one entity kind.
func ProvideStore[T any, P Pointer[T]](gdb *gorm.DB, cfg Config) Store[T] {
	return &store[T, P]{
		db:       gdb,
		cfg:      cfg,
		patch:    toSet(cfg.PatchColumns),
		counters: toSet(cfg.CounterColumns),
		parents:  toSet(cfg.ParentColumns),
	}
}

func toSet(columns []string) map[string]struct{} {
	set := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return set
}

func (s *store[T, P]) WithTrx(tx *gorm.DB) Store[T] {
	return &store[T, P]{db: tx, cfg: s.cfg, patch: s.patch, counters: s.counters, parents: s.parents}
}

func (s *store[T, P]) Get(ctx context.Context, tenantID, id string) (*T, error) {
	var result T
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}
	return &result, nil
}

func (s *store[T, P]) Create(ctx context.Context, resource *T) (*T, error) {
	meta := P(resource).Meta()
	if meta.ID == "" {
		return nil, fmt.Errorf("create: missing id")
	}
	if meta.TenantID == "" {
		return nil, fmt.Errorf("create: missing tenant id")
	}

	now := time.Now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.Version = 1

	if err := s.db.WithContext(ctx).Create(resource).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, ErrAlreadyExists
		}
		return nil, classify(err)
	}
	return resource, nil
}

func (s *store[T, P]) Update(ctx context.Context, tenantID, id, ownerID string, patch map[string]any, opts ...option.QueryOption) (*T, error) {
	updates := make(map[string]any, len(patch)+2)
	for column, value := range patch {
		if _, ok := s.patch[column]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotAllowed, column)
		}
		updates[column] = value
	}
	updates["updated_at"] = time.Now().UTC()
	updates["version"] = gorm.Expr("version + 1")

	stmt := s.mutationScope(ctx, tenantID, id, ownerID, opts...)
	res := stmt.Updates(updates)
	if res.Error != nil {
		return nil, classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFoundOrForbidden
	}

	return s.Get(ctx, tenantID, id)
}

func (s *store[T, P]) Delete(ctx context.Context, tenantID, id, ownerID string, opts ...option.QueryOption) error {
	stmt := s.mutationScope(ctx, tenantID, id, ownerID, opts...)
	res := stmt.Delete(new(T))
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}

func (s *store[T, P]) QueryRecent(ctx context.Context, tenantID string, page pagination.Pagination, opts ...option.QueryOption) ([]*T, *pagination.PageInfo, error) {
	size := page.Clamp()

	stmt := s.db.WithContext(ctx).
		Model(new(T)).
		Where("tenant_id = ?", tenantID)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, err
		}
		createdAt, err := cursor.CreatedAtTime()
		if err != nil {
			return nil, nil, err
		}
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
	}

	var rows []*T
	err := stmt.
		Order("created_at DESC, id DESC").
		Limit(size + 1).
		Find(&rows).Error
	if err != nil {
		return nil, nil, classify(err)
	}

	info := pagination.BuildCursorPageInfo(rows, size, func(item *T) string {
		meta := P(item).Meta()
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        meta.ID,
			CreatedAt: meta.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(rows) > size {
		rows = rows[:size]
	}
	return rows, info, nil
}

func (s *store[T, P]) QueryChildren(ctx context.Context, tenantID, parentColumn, parentID string, limit int) ([]*T, error) {
	if _, ok := s.parents[parentColumn]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotAllowed, parentColumn)
	}
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}
	if limit > pagination.MaxPageSize {
		limit = pagination.MaxPageSize
	}

	var rows []*T
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where(parentColumn+" = ?", parentID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (s *store[T, P]) Increment(ctx context.Context, tenantID, id, column string, delta int64) error {
	if _, ok := s.counters[column]; !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotAllowed, column)
	}

	res := s.db.WithContext(ctx).
		Model(new(T)).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *store[T, P]) Count(ctx context.Context, tenantID string, opts ...option.QueryOption) (int64, error) {
	stmt := s.db.WithContext(ctx).
		Model(new(T)).
		Where("tenant_id = ?", tenantID)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return 0, classify(err)
	}
	return count, nil
}

// mutationScope builds the compound predicate shared by Update and Delete.
// The owner condition is folded into the same statement so existence and
// ownership are checked atomically by the store.
func (s *store[T, P]) mutationScope(ctx context.Context, tenantID, id, ownerID string, opts ...option.QueryOption) *gorm.DB {
	stmt := s.db.WithContext(ctx).
		Model(new(T)).
		Where("tenant_id = ? AND id = ?", tenantID, id)
	if ownerID != "" {
		stmt = stmt.Where("author_id = ?", ownerID)
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if db.IsUnavailableErr(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
