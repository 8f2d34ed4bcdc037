package service

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/campus/internal/post/domain"
	"github.com/smallbiznis/campus/internal/tenantctx"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"github.com/smallbiznis/campus/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setup(t *testing.T) (domain.Service, repository.Store[domain.Post]) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.Post{}))

	store := repository.ProvideStore[domain.Post, *domain.Post](gdb, repository.Config{
		PatchColumns:   []string{"title", "content"},
		CounterColumns: []string{domain.CounterComments, domain.CounterLikes},
	})
	return New(store, id.NewGenerator()), store
}

func asUser(tenantID, userID string) context.Context {
	return tenantctx.WithIdentity(context.Background(), tenantctx.Identity{
		TenantID: tenantID,
		UserID:   userID,
		Role:     tenantctx.RoleMember,
	})
}

func TestCreateCollectsAllViolations(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.Create(asUser("t1", "u1"), domain.CreatePostRequest{Title: "  ", Content: ""})
	require.Error(t, err)

	var verrs *validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs.Fields, 2)
}

func TestCreateSetsDefaults(t *testing.T) {
	svc, _ := setup(t)

	post, err := svc.Create(asUser("t1", "u1"), domain.CreatePostRequest{Title: " Hi ", Content: "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hi", post.Title)
	assert.Equal(t, int64(1), post.Version)
	assert.Equal(t, int64(0), post.CommentsCount)
	assert.Equal(t, "t1", post.TenantID)
	assert.Equal(t, "u1", post.AuthorID)
}

func TestUpdateByNonOwnerLeavesPostUntouched(t *testing.T) {
	svc, store := setup(t)

	post, err := svc.Create(asUser("t1", "u1"), domain.CreatePostRequest{Title: "Hi", Content: "World"})
	require.NoError(t, err)

	newTitle := "Hacked"
	_, err = svc.Update(asUser("t1", "u2"), post.ID, domain.UpdatePostRequest{Title: &newTitle})
	assert.ErrorIs(t, err, repository.ErrNotFoundOrForbidden)

	unchanged, err := store.Get(context.Background(), "t1", post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi", unchanged.Title)
	assert.Equal(t, int64(1), unchanged.Version)
}

func TestUpdateBumpsVersion(t *testing.T) {
	svc, _ := setup(t)

	post, err := svc.Create(asUser("t1", "u1"), domain.CreatePostRequest{Title: "Hi", Content: "World"})
	require.NoError(t, err)

	newContent := "Updated"
	updated, err := svc.Update(asUser("t1", "u1"), post.ID, domain.UpdatePostRequest{Content: &newContent})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "Updated", updated.Content)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestLike(t *testing.T) {
	svc, store := setup(t)

	post, err := svc.Create(asUser("t1", "u1"), domain.CreatePostRequest{Title: "Hi", Content: "World"})
	require.NoError(t, err)

	require.NoError(t, svc.Like(asUser("t1", "u2"), post.ID))
	require.NoError(t, svc.Like(asUser("t1", "u3"), post.ID))

	liked, err := store.Get(context.Background(), "t1", post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), liked.LikesCount)
	assert.Equal(t, int64(1), liked.Version)

	assert.ErrorIs(t, svc.Like(asUser("t1", "u1"), "ghost"), repository.ErrNotFound)
	assert.ErrorIs(t, svc.Like(asUser("t2", "u1"), post.ID), repository.ErrNotFound)
}

func TestDeleteByOwner(t *testing.T) {
	svc, store := setup(t)

	post, err := svc.Create(asUser("t1", "u1"), domain.CreatePostRequest{Title: "Hi", Content: "World"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(asUser("t1", "u2"), post.ID), repository.ErrNotFoundOrForbidden)
	require.NoError(t, svc.Delete(asUser("t1", "u1"), post.ID))

	_, err = store.Get(context.Background(), "t1", post.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
