package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/smallbiznis/campus/pkg/db/option"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type note struct {
	Base
	ParentID string `gorm:"column:parent_id;size:32;index"`
	Body     string `gorm:"column:body"`
	Stars    int64  `gorm:"column:stars;not null;default:0"`
}

func setupStore(t *testing.T) Store[note] {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&note{}))

	return ProvideStore[note, *note](gdb, Config{
		PatchColumns:   []string{"body"},
		CounterColumns: []string{"stars"},
		ParentColumns:  []string{"parent_id"},
	})
}

func newNote(id, tenant, author, body string) *note {
	return &note{
		Base: Base{ID: id, TenantID: tenant, AuthorID: author},
		Body: body,
	}
}

func TestCreateSetsVersionAndTimestamps(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, newNote("n1", "t1", "u1", "hello"))
	require.NoError(t, err)
	require.EqualValues(t, 1, created.Version)
	require.False(t, created.CreatedAt.IsZero())
	require.Equal(t, created.CreatedAt, created.UpdatedAt)
}

func TestCreateDuplicateLeavesRowUntouched(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newNote("n1", "t1", "u1", "original"))
	require.NoError(t, err)

	_, err = store.Create(ctx, newNote("n1", "t1", "u2", "impostor"))
	require.True(t, errors.Is(err, ErrAlreadyExists))

	got, err := store.Get(ctx, "t1", "n1")
	require.NoError(t, err)
	require.Equal(t, "original", got.Body)
	require.Equal(t, "u1", got.AuthorID)
}

func TestTenantIsolation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newNote("n1", "tenant-a", "u1", "secret"))
	require.NoError(t, err)

	// Reads, mutations, and queries from another tenant never see the row,
	// even with the exact id.
	_, err = store.Get(ctx, "tenant-b", "n1")
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Update(ctx, "tenant-b", "n1", "", map[string]any{"body": "stolen"})
	require.True(t, errors.Is(err, ErrNotFoundOrForbidden))

	err = store.Delete(ctx, "tenant-b", "n1", "")
	require.True(t, errors.Is(err, ErrNotFoundOrForbidden))

	rows, _, err := store.QueryRecent(ctx, "tenant-b", pagination.Pagination{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestUpdateBumpsVersionExactlyOnce(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, newNote("n1", "t1", "u1", "v1"))
	require.NoError(t, err)

	updated, err := store.Update(ctx, "t1", "n1", "u1", map[string]any{"body": "v2"})
	require.NoError(t, err)
	require.EqualValues(t, 2, updated.Version)
	require.Equal(t, "v2", updated.Body)
	require.False(t, updated.UpdatedAt.Before(created.CreatedAt))
}

func TestUpdateRejectsUnknownColumns(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newNote("n1", "t1", "u1", "x"))
	require.NoError(t, err)

	_, err = store.Update(ctx, "t1", "n1", "", map[string]any{"author_id": "u2"})
	require.True(t, errors.Is(err, ErrColumnNotAllowed))
}

func TestOwnershipFailureMatchesMissingEntity(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newNote("n1", "t1", "u1", "mine"))
	require.NoError(t, err)

	_, errOwner := store.Update(ctx, "t1", "n1", "u2", map[string]any{"body": "taken"})
	_, errMissing := store.Update(ctx, "t1", "ghost", "u2", map[string]any{"body": "taken"})
	require.True(t, errors.Is(errOwner, ErrNotFoundOrForbidden))
	require.True(t, errors.Is(errMissing, ErrNotFoundOrForbidden))
	require.Equal(t, errOwner, errMissing)

	got, err := store.Get(ctx, "t1", "n1")
	require.NoError(t, err)
	require.Equal(t, "mine", got.Body)
	require.EqualValues(t, 1, got.Version)
}

func TestConditionalUpdateArbitratesConcurrentWriters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newNote("n1", "t1", "u1", "base"))
	require.NoError(t, err)

	// Both writers read version 1 and condition their write on it; the store
	// accepts exactly one.
	_, err = store.Update(ctx, "t1", "n1", "u1", map[string]any{"body": "first"}, option.Where("version = ?", 1))
	require.NoError(t, err)

	_, err = store.Update(ctx, "t1", "n1", "u1", map[string]any{"body": "second"}, option.Where("version = ?", 1))
	require.True(t, errors.Is(err, ErrNotFoundOrForbidden))

	got, err := store.Get(ctx, "t1", "n1")
	require.NoError(t, err)
	require.Equal(t, "first", got.Body)
	require.EqualValues(t, 2, got.Version)
}

func TestDeleteIsHardAndConditional(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newNote("n1", "t1", "u1", "x"))
	require.NoError(t, err)

	err = store.Delete(ctx, "t1", "n1", "u2")
	require.True(t, errors.Is(err, ErrNotFoundOrForbidden))

	require.NoError(t, store.Delete(ctx, "t1", "n1", "u1"))

	_, err = store.Get(ctx, "t1", "n1")
	require.True(t, errors.Is(err, ErrNotFound))

	err = store.Delete(ctx, "t1", "n1", "u1")
	require.True(t, errors.Is(err, ErrNotFoundOrForbidden))
}

func TestQueryRecentPaginationComplete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	const total = 7
	for i := 0; i < total; i++ {
		_, err := store.Create(ctx, newNote(fmt.Sprintf("id-%02d", i), "t1", "u1", fmt.Sprintf("note %d", i)))
		require.NoError(t, err)
	}
	// Noise in another tenant must never leak into the pages.
	_, err := store.Create(ctx, newNote("id-99", "t2", "u1", "other tenant"))
	require.NoError(t, err)

	for pageSize := 1; pageSize <= total+1; pageSize++ {
		seen := make(map[string]bool)
		var ordered []string
		token := ""
		for {
			rows, info, err := store.QueryRecent(ctx, "t1", pagination.Pagination{PageToken: token, PageSize: pageSize})
			require.NoError(t, err)
			for _, row := range rows {
				require.False(t, seen[row.ID], "page size %d returned %s twice", pageSize, row.ID)
				seen[row.ID] = true
				ordered = append(ordered, row.ID)
			}
			if info == nil || !info.HasMore {
				break
			}
			token = info.NextPageToken
			require.NotEmpty(t, token)
		}

		require.Len(t, ordered, total, "page size %d", pageSize)
		// Newest-first: descending id order since ids were minted in creation order.
		for i := 1; i < len(ordered); i++ {
			require.Greater(t, ordered[i-1], ordered[i])
		}
	}
}

func TestQueryRecentRejectsTamperedCursor(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, _, err := store.QueryRecent(ctx, "t1", pagination.Pagination{PageToken: "bm90IGEgY3Vyc29y"})
	require.True(t, errors.Is(err, pagination.ErrInvalidCursor))
}

func TestQueryChildrenOldestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		child := newNote(fmt.Sprintf("c-%02d", i), "t1", "u1", fmt.Sprintf("reply %d", i))
		child.ParentID = "p1"
		_, err := store.Create(ctx, child)
		require.NoError(t, err)
	}
	other := newNote("c-99", "t1", "u1", "different parent")
	other.ParentID = "p2"
	_, err := store.Create(ctx, other)
	require.NoError(t, err)

	rows, err := store.QueryChildren(ctx, "t1", "parent_id", "p1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		require.Equal(t, fmt.Sprintf("c-%02d", i), row.ID)
	}

	_, err = store.QueryChildren(ctx, "t1", "body", "p1", 10)
	require.True(t, errors.Is(err, ErrColumnNotAllowed))
}

func TestIncrementIsAdvisory(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newNote("n1", "t1", "u1", "x"))
	require.NoError(t, err)

	require.NoError(t, store.Increment(ctx, "t1", "n1", "stars", 2))
	require.NoError(t, store.Increment(ctx, "t1", "n1", "stars", -1))

	got, err := store.Get(ctx, "t1", "n1")
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Stars)
	// Counter bumps never touch the optimistic version.
	require.EqualValues(t, 1, got.Version)

	err = store.Increment(ctx, "t1", "ghost", "stars", 1)
	require.True(t, errors.Is(err, ErrNotFound))

	err = store.Increment(ctx, "t1", "n1", "version", 1)
	require.True(t, errors.Is(err, ErrColumnNotAllowed))
}

func TestCountScopedToTenant(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, newNote(fmt.Sprintf("a-%d", i), "t1", "u1", "x"))
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, newNote("b-0", "t2", "u1", "x"))
	require.NoError(t, err)

	count, err := store.Count(ctx, "t1")
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
}
