package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/campus/internal/observability/logger"
	"github.com/smallbiznis/campus/internal/post/domain"
	"github.com/smallbiznis/campus/internal/tenantctx"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"github.com/smallbiznis/campus/pkg/validation"
	"go.uber.org/zap"
)

const (
	maxTitleLen   = 200
	maxContentLen = 10000
)

type postService struct {
	store repository.Store[domain.Post]
	ids   id.Generator
}

// New builds the post service.
func New(store repository.Store[domain.Post], ids id.Generator) domain.Service {
	return &postService{store: store, ids: ids}
}

func (s *postService) Create(ctx context.Context, req domain.CreatePostRequest) (*domain.Post, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}

	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)

	verrs := &validation.Errors{}
	if title == "" {
		verrs.Add("title", "required", "title is required")
	} else if utf8.RuneCountInString(title) > maxTitleLen {
		verrs.Add("title", "too_long", "title exceeds 200 characters")
	}
	if content == "" {
		verrs.Add("content", "required", "content is required")
	} else if utf8.RuneCountInString(content) > maxContentLen {
		verrs.Add("content", "too_long", "content exceeds 10000 characters")
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	post := &domain.Post{
		Base: repository.Base{
			ID:       s.ids.NewID(),
			TenantID: identity.TenantID,
			AuthorID: identity.UserID,
		},
		Title:   title,
		Content: content,
	}
	return s.store.Create(ctx, post)
}

func (s *postService) Get(ctx context.Context, postID string) (*domain.Post, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}
	return s.store.Get(ctx, identity.TenantID, postID)
}

func (s *postService) List(ctx context.Context, page pagination.Pagination) ([]*domain.Post, *pagination.PageInfo, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, nil, tenantctx.ErrMissingIdentity
	}
	return s.store.QueryRecent(ctx, identity.TenantID, page)
}

func (s *postService) Update(ctx context.Context, postID string, req domain.UpdatePostRequest) (*domain.Post, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}

	patch := make(map[string]any, 2)
	verrs := &validation.Errors{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		switch {
		case title == "":
			verrs.Add("title", "required", "title cannot be empty")
		case utf8.RuneCountInString(title) > maxTitleLen:
			verrs.Add("title", "too_long", "title exceeds 200 characters")
		default:
			patch["title"] = title
		}
	}
	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		switch {
		case content == "":
			verrs.Add("content", "required", "content cannot be empty")
		case utf8.RuneCountInString(content) > maxContentLen:
			verrs.Add("content", "too_long", "content exceeds 10000 characters")
		default:
			patch["content"] = content
		}
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, validation.New("body", "empty_patch", "no updatable fields supplied")
	}

	return s.store.Update(ctx, identity.TenantID, postID, identity.UserID, patch)
}

func (s *postService) Delete(ctx context.Context, postID string) error {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return tenantctx.ErrMissingIdentity
	}
	return s.store.Delete(ctx, identity.TenantID, postID, identity.UserID)
}

func (s *postService) Like(ctx context.Context, postID string) error {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return tenantctx.ErrMissingIdentity
	}

	err := s.store.Increment(ctx, identity.TenantID, postID, domain.CounterLikes, 1)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("post liked", zap.String("post_id", postID))
	return nil
}
