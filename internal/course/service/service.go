package service

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/campus/internal/authorization"
	"github.com/smallbiznis/campus/internal/course/domain"
	"github.com/smallbiznis/campus/internal/pricing"
	"github.com/smallbiznis/campus/internal/tenantctx"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"github.com/smallbiznis/campus/pkg/validation"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 20000
)

type courseService struct {
	store  repository.Store[domain.Course]
	ids    id.Generator
	authz  *authorization.Service
	prices *pricing.Table
}

// New builds the course service.
func New(
	store repository.Store[domain.Course],
	ids id.Generator,
	authz *authorization.Service,
	prices *pricing.Table,
) domain.Service {
	return &courseService{store: store, ids: ids, authz: authz, prices: prices}
}

func (s *courseService) Create(ctx context.Context, req domain.CreateCourseRequest) (*domain.Course, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}
	if err := s.require(identity.Role, "create"); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	category := strings.ToLower(strings.TrimSpace(req.Category))
	level := strings.ToLower(strings.TrimSpace(req.Level))
	plan := strings.ToLower(strings.TrimSpace(req.Plan))

	verrs := &validation.Errors{}
	if title == "" {
		verrs.Add("title", "required", "title is required")
	} else if utf8.RuneCountInString(title) > maxTitleLen {
		verrs.Add("title", "too_long", "title exceeds 200 characters")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		verrs.Add("description", "too_long", "description exceeds 20000 characters")
	}
	if !slices.Contains(domain.Categories, category) {
		verrs.Add("category", "invalid_enum", "category must be one of: "+strings.Join(domain.Categories, ", "))
	}
	if !slices.Contains(domain.Levels, level) {
		verrs.Add("level", "invalid_enum", "level must be one of: "+strings.Join(domain.Levels, ", "))
	}

	course := &domain.Course{
		Base: repository.Base{
			ID:       s.ids.NewID(),
			TenantID: identity.TenantID,
			AuthorID: identity.UserID,
		},
		Title:       title,
		Slug:        slug.Make(title),
		Description: description,
		Category:    category,
		Level:       level,
	}

	if plan != "" {
		price, err := s.prices.Lookup(plan)
		if err != nil {
			verrs.Add("plan", "unknown_plan", "no pricing entry for plan "+plan)
		} else {
			course.Plan = price.Plan
			course.PriceAmount = price.Amount
			course.PriceCurrency = price.Currency
		}
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	return s.store.Create(ctx, course)
}

func (s *courseService) Get(ctx context.Context, courseID string) (*domain.Course, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}
	return s.store.Get(ctx, identity.TenantID, courseID)
}

func (s *courseService) List(ctx context.Context, page pagination.Pagination) ([]*domain.Course, *pagination.PageInfo, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, nil, tenantctx.ErrMissingIdentity
	}
	return s.store.QueryRecent(ctx, identity.TenantID, page)
}

func (s *courseService) Update(ctx context.Context, courseID string, req domain.UpdateCourseRequest) (*domain.Course, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}
	if err := s.require(identity.Role, "update"); err != nil {
		return nil, err
	}

	patch := make(map[string]any, 6)
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
			patch["slug"] = slug.Make(title)
		}
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if utf8.RuneCountInString(description) > maxDescriptionLen {
			verrs.Add("description", "too_long", "description exceeds 20000 characters")
		} else {
			patch["description"] = description
		}
	}
	if req.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*req.Category))
		if !slices.Contains(domain.Categories, category) {
			verrs.Add("category", "invalid_enum", "category must be one of: "+strings.Join(domain.Categories, ", "))
		} else {
			patch["category"] = category
		}
	}
	if req.Level != nil {
		level := strings.ToLower(strings.TrimSpace(*req.Level))
		if !slices.Contains(domain.Levels, level) {
			verrs.Add("level", "invalid_enum", "level must be one of: "+strings.Join(domain.Levels, ", "))
		} else {
			patch["level"] = level
		}
	}
	if req.Plan != nil {
		plan := strings.ToLower(strings.TrimSpace(*req.Plan))
		if plan == "" {
			patch["plan"] = ""
			patch["price_amount"] = 0.0
			patch["price_currency"] = ""
		} else if price, err := s.prices.Lookup(plan); err != nil {
			verrs.Add("plan", "unknown_plan", "no pricing entry for plan "+plan)
		} else {
			patch["plan"] = price.Plan
			patch["price_amount"] = price.Amount
			patch["price_currency"] = price.Currency
		}
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, validation.New("body", "empty_patch", "no updatable fields supplied")
	}

	// Courses are tenant assets, not personal ones: any role that passes the
	// gate may modify them, so no owner predicate.
	return s.store.Update(ctx, identity.TenantID, courseID, "", patch)
}

func (s *courseService) Delete(ctx context.Context, courseID string) error {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return tenantctx.ErrMissingIdentity
	}
	if err := s.require(identity.Role, "delete"); err != nil {
		return err
	}
	return s.store.Delete(ctx, identity.TenantID, courseID, "")
}

func (s *courseService) require(role, action string) error {
	allowed, err := s.authz.Authorize(role, "courses", action)
	if err != nil {
		return err
	}
	if !allowed {
		return authorization.ErrForbidden
	}
	return nil
}
