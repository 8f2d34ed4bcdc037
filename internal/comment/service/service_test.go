package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/campus/internal/async"
	"github.com/smallbiznis/campus/internal/comment/domain"
	"github.com/smallbiznis/campus/internal/observability/metrics"
	postdomain "github.com/smallbiznis/campus/internal/post/domain"
	"github.com/smallbiznis/campus/internal/tenantctx"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	svc      domain.Service
	posts    repository.Store[postdomain.Post]
	comments repository.Store[domain.Comment]
}

func setup(t *testing.T) fixture {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&postdomain.Post{}, &domain.Comment{}))

	posts := repository.ProvideStore[postdomain.Post, *postdomain.Post](gdb, repository.Config{
		PatchColumns:   []string{"title", "content"},
		CounterColumns: []string{postdomain.CounterComments, postdomain.CounterLikes},
	})
	comments := repository.ProvideStore[domain.Comment, *domain.Comment](gdb, repository.Config{
		ParentColumns: []string{domain.ParentColumn},
	})

	m, err := metrics.New(noop.NewMeterProvider())
	require.NoError(t, err)

	// Synchronous runner so counter effects are observable immediately.
	svc := New(comments, posts, id.NewGenerator(), async.SyncRunner{}, m)
	return fixture{svc: svc, posts: posts, comments: comments}
}

func asUser(tenantID, userID string) context.Context {
	return tenantctx.WithIdentity(context.Background(), tenantctx.Identity{
		TenantID: tenantID,
		UserID:   userID,
		Role:     tenantctx.RoleMember,
	})
}

func (f fixture) newPost(t *testing.T, tenantID, userID string) *postdomain.Post {
	t.Helper()
	post, err := f.posts.Create(context.Background(), &postdomain.Post{
		Base:    repository.Base{ID: id.NewGenerator().NewID(), TenantID: tenantID, AuthorID: userID},
		Title:   "Hi",
		Content: "World",
	})
	require.NoError(t, err)
	return post
}

func TestCreateBumpsCommentsCount(t *testing.T) {
	f := setup(t)
	post := f.newPost(t, "t1", "u1")

	comment, err := f.svc.Create(asUser("t1", "u2"), post.ID, domain.CreateCommentRequest{Content: "Nice"})
	require.NoError(t, err)
	assert.Equal(t, post.ID, comment.PostID)
	assert.Equal(t, int64(1), comment.Version)

	reloaded, err := f.posts.Get(context.Background(), "t1", post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.CommentsCount)
	assert.Equal(t, int64(1), reloaded.Version, "counter bump must not touch version")
}

func TestCreateRequiresParentInTenant(t *testing.T) {
	f := setup(t)
	post := f.newPost(t, "t1", "u1")

	_, err := f.svc.Create(asUser("t2", "u2"), post.ID, domain.CreateCommentRequest{Content: "Nice"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.svc.Create(asUser("t1", "u2"), "ghost", domain.CreateCommentRequest{Content: "Nice"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateRejectsEmptyContent(t *testing.T) {
	f := setup(t)
	post := f.newPost(t, "t1", "u1")

	_, err := f.svc.Create(asUser("t1", "u2"), post.ID, domain.CreateCommentRequest{Content: "   "})
	require.Error(t, err)

	reloaded, err := f.posts.Get(context.Background(), "t1", post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.CommentsCount)
}

func TestDeleteSemantics(t *testing.T) {
	f := setup(t)
	post := f.newPost(t, "t1", "u1")

	comment, err := f.svc.Create(asUser("t1", "u2"), post.ID, domain.CreateCommentRequest{Content: "Nice"})
	require.NoError(t, err)

	// Non-owner and missing comment fail identically.
	errOther := f.svc.Delete(asUser("t1", "u3"), comment.ID)
	errGhost := f.svc.Delete(asUser("t1", "u3"), "ghost")
	assert.ErrorIs(t, errOther, repository.ErrNotFoundOrForbidden)
	assert.ErrorIs(t, errGhost, repository.ErrNotFoundOrForbidden)

	reloaded, err := f.posts.Get(context.Background(), "t1", post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.CommentsCount)

	require.NoError(t, f.svc.Delete(asUser("t1", "u2"), comment.ID))
	reloaded, err = f.posts.Get(context.Background(), "t1", post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.CommentsCount)
}

func TestListOldestFirst(t *testing.T) {
	f := setup(t)
	post := f.newPost(t, "t1", "u1")

	first, err := f.svc.Create(asUser("t1", "u2"), post.ID, domain.CreateCommentRequest{Content: "first"})
	require.NoError(t, err)
	second, err := f.svc.Create(asUser("t1", "u2"), post.ID, domain.CreateCommentRequest{Content: "second"})
	require.NoError(t, err)

	listed, err := f.svc.ListByPost(asUser("t1", "u9"), post.ID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, second.ID, listed[1].ID)

	other, err := f.svc.ListByPost(asUser("t2", "u9"), post.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}
