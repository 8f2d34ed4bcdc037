package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/campus/internal/async"
	"github.com/smallbiznis/campus/internal/comment/domain"
	"github.com/smallbiznis/campus/internal/observability/logger"
	"github.com/smallbiznis/campus/internal/observability/metrics"
	postdomain "github.com/smallbiznis/campus/internal/post/domain"
	"github.com/smallbiznis/campus/internal/tenantctx"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"github.com/smallbiznis/campus/pkg/validation"
	"go.uber.org/zap"
)

const maxCommentLen = 5000

type commentService struct {
	comments repository.Store[domain.Comment]
	posts    repository.Store[postdomain.Post]
	ids      id.Generator
	runner   async.Runner
	metrics  *metrics.Metrics
}

// New builds the comment service.
func New(
	comments repository.Store[domain.Comment],
	posts repository.Store[postdomain.Post],
	ids id.Generator,
	runner async.Runner,
	m *metrics.Metrics,
) domain.Service {
	return &commentService{comments: comments, posts: posts, ids: ids, runner: runner, metrics: m}
}

func (s *commentService) Create(ctx context.Context, postID string, req domain.CreateCommentRequest) (*domain.Comment, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}

	content := strings.TrimSpace(req.Content)
	verrs := &validation.Errors{}
	if content == "" {
		verrs.Add("content", "required", "content is required")
	} else if utf8.RuneCountInString(content) > maxCommentLen {
		verrs.Add("content", "too_long", "content exceeds 5000 characters")
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	// The parent must exist in the caller's tenant before the child write.
	if _, err := s.posts.Get(ctx, identity.TenantID, postID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		Base: repository.Base{
			ID:       s.ids.NewID(),
			TenantID: identity.TenantID,
			AuthorID: identity.UserID,
		},
		PostID:  postID,
		Content: content,
	}
	created, err := s.comments.Create(ctx, comment)
	if err != nil {
		return nil, err
	}

	s.bumpCommentsCount(ctx, identity.TenantID, postID, +1)
	return created, nil
}

func (s *commentService) ListByPost(ctx context.Context, postID string, limit int) ([]*domain.Comment, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}
	return s.comments.QueryChildren(ctx, identity.TenantID, domain.ParentColumn, postID, limit)
}

func (s *commentService) Delete(ctx context.Context, commentID string) error {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return tenantctx.ErrMissingIdentity
	}

	// The read only recovers the parent post id for the counter adjustment.
	// Existence and ownership are still decided by the conditional delete.
	comment, err := s.comments.Get(ctx, identity.TenantID, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFoundOrForbidden
		}
		return err
	}

	if err := s.comments.Delete(ctx, identity.TenantID, commentID, identity.UserID); err != nil {
		return err
	}

	s.bumpCommentsCount(ctx, identity.TenantID, comment.PostID, -1)
	return nil
}

// bumpCommentsCount adjusts the parent's denormalized counter after the
// comment write has committed. Failures are logged and counted, never
// returned: the counter is advisory.
func (s *commentService) bumpCommentsCount(ctx context.Context, tenantID, postID string, delta int64) {
	s.runner.Go(ctx, func(ctx context.Context) {
		err := s.posts.Increment(ctx, tenantID, postID, postdomain.CounterComments, delta)
		if err != nil {
			s.metrics.CounterBumpFailed(ctx, "post", postdomain.CounterComments)
			logger.FromContext(ctx).Warn("comments_count adjustment failed",
				zap.String("post_id", postID),
				zap.Int64("delta", delta),
				zap.Error(err),
			)
		}
	})
}
