package service

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/campus/internal/authorization"
	"github.com/smallbiznis/campus/internal/experiment/domain"
	"github.com/smallbiznis/campus/internal/tenantctx"
	"github.com/smallbiznis/campus/pkg/db/option"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"github.com/smallbiznis/campus/pkg/validation"
	"gorm.io/datatypes"
)

const (
	maxNameLen = 200
	maxTextLen = 20000
)

type experimentService struct {
	store repository.Store[domain.Experiment]
	ids   id.Generator
	authz *authorization.Service
}

// New builds the experiment service.
func New(store repository.Store[domain.Experiment], ids id.Generator, authz *authorization.Service) domain.Service {
	return &experimentService{store: store, ids: ids, authz: authz}
}

func (s *experimentService) Create(ctx context.Context, req domain.CreateExperimentRequest) (*domain.Experiment, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}
	if err := s.require(identity.Role, "create"); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	verrs := &validation.Errors{}
	if name == "" {
		verrs.Add("name", "required", "name is required")
	} else if utf8.RuneCountInString(name) > maxNameLen {
		verrs.Add("name", "too_long", "name exceeds 200 characters")
	}
	if utf8.RuneCountInString(req.Hypothesis) > maxTextLen {
		verrs.Add("hypothesis", "too_long", "hypothesis exceeds 20000 characters")
	}
	if utf8.RuneCountInString(req.Description) > maxTextLen {
		verrs.Add("description", "too_long", "description exceeds 20000 characters")
	}
	if len(req.Variants) > 0 && !json.Valid(req.Variants) {
		verrs.Add("variants", "invalid_json", "variants must be valid JSON")
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	experiment := &domain.Experiment{
		Base: repository.Base{
			ID:       s.ids.NewID(),
			TenantID: identity.TenantID,
			AuthorID: identity.UserID,
		},
		Name:        name,
		Hypothesis:  strings.TrimSpace(req.Hypothesis),
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusDraft,
		Variants:    datatypes.JSON(req.Variants),
	}
	return s.store.Create(ctx, experiment)
}

func (s *experimentService) Get(ctx context.Context, experimentID string) (*domain.Experiment, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}
	return s.store.Get(ctx, identity.TenantID, experimentID)
}

func (s *experimentService) List(ctx context.Context, page pagination.Pagination) ([]*domain.Experiment, *pagination.PageInfo, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, nil, tenantctx.ErrMissingIdentity
	}
	return s.store.QueryRecent(ctx, identity.TenantID, page)
}

func (s *experimentService) Update(ctx context.Context, experimentID string, req domain.UpdateExperimentRequest) (*domain.Experiment, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}
	if err := s.require(identity.Role, "update"); err != nil {
		return nil, err
	}

	patch := make(map[string]any, 4)
	verrs := &validation.Errors{}
	var opts []option.QueryOption

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		switch {
		case name == "":
			verrs.Add("name", "required", "name cannot be empty")
		case utf8.RuneCountInString(name) > maxNameLen:
			verrs.Add("name", "too_long", "name exceeds 200 characters")
		default:
			patch["name"] = name
		}
	}
	if req.Hypothesis != nil {
		hypothesis := strings.TrimSpace(*req.Hypothesis)
		if utf8.RuneCountInString(hypothesis) > maxTextLen {
			verrs.Add("hypothesis", "too_long", "hypothesis exceeds 20000 characters")
		} else {
			patch["hypothesis"] = hypothesis
		}
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if utf8.RuneCountInString(description) > maxTextLen {
			verrs.Add("description", "too_long", "description exceeds 20000 characters")
		} else {
			patch["description"] = description
		}
	}
	if len(req.Variants) > 0 {
		if !json.Valid(req.Variants) {
			verrs.Add("variants", "invalid_json", "variants must be valid JSON")
		} else {
			patch["variants"] = datatypes.JSON(req.Variants)
		}
	}
	if req.Status != nil {
		target := strings.ToLower(strings.TrimSpace(*req.Status))
		from, ok := domain.TransitionFrom[target]
		if !ok {
			verrs.Add("status", "invalid_transition", "status may only move to running or completed")
		} else {
			patch["status"] = target
			// Evaluated by the store at apply time; a concurrent transition
			// makes this update match zero rows.
			opts = append(opts, option.Where("status = ?", from))
		}
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, validation.New("body", "empty_patch", "no updatable fields supplied")
	}

	return s.store.Update(ctx, identity.TenantID, experimentID, "", patch, opts...)
}

func (s *experimentService) Delete(ctx context.Context, experimentID string) error {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return tenantctx.ErrMissingIdentity
	}
	if err := s.require(identity.Role, "delete"); err != nil {
		return err
	}
	return s.store.Delete(ctx, identity.TenantID, experimentID, "")
}

func (s *experimentService) require(role, action string) error {
	allowed, err := s.authz.Authorize(role, "experiments", action)
	if err != nil {
		return err
	}
	if !allowed {
		return authorization.ErrForbidden
	}
	return nil
}
