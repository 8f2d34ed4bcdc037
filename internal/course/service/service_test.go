package service

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/campus/internal/authorization"
	"github.com/smallbiznis/campus/internal/course/domain"
	"github.com/smallbiznis/campus/internal/pricing"
	"github.com/smallbiznis/campus/internal/tenantctx"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"github.com/smallbiznis/campus/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setup(t *testing.T) domain.Service {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.Course{}))

	store := repository.ProvideStore[domain.Course, *domain.Course](gdb, repository.Config{
		PatchColumns: []string{"title", "slug", "description", "category", "level", "plan", "price_amount", "price_currency"},
	})
	authz, err := authorization.NewService()
	require.NoError(t, err)
	prices, err := pricing.NewTable(pricing.Params{Log: zap.NewNop()})
	require.NoError(t, err)

	return New(store, id.NewGenerator(), authz, prices)
}

func asRole(tenantID, userID, role string) context.Context {
	return tenantctx.WithIdentity(context.Background(), tenantctx.Identity{
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
	})
}

func validCreate() domain.CreateCourseRequest {
	return domain.CreateCourseRequest{
		Title:       "Go for Beginners",
		Description: "An introduction.",
		Category:    "programming",
		Level:       "beginner",
	}
}

func TestCreateRoleGate(t *testing.T) {
	svc := setup(t)

	_, err := svc.Create(asRole("t1", "u1", tenantctx.RoleMember), validCreate())
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	for _, role := range []string{tenantctx.RolePremiumUser, tenantctx.RoleInstructor, tenantctx.RoleAdmin} {
		_, err := svc.Create(asRole("t1", "u1", role), validCreate())
		assert.NoError(t, err, role)
	}
}

func TestCreateGeneratesSlugAndPrice(t *testing.T) {
	svc := setup(t)

	req := validCreate()
	req.Plan = "Premium"
	course, err := svc.Create(asRole("t1", "u1", tenantctx.RoleInstructor), req)
	require.NoError(t, err)
	assert.Equal(t, "go-for-beginners", course.Slug)
	assert.Equal(t, "premium", course.Plan)
	assert.Equal(t, 49.0, course.PriceAmount)
	assert.Equal(t, "USD", course.PriceCurrency)
}

func TestCreateCollectsEnumViolations(t *testing.T) {
	svc := setup(t)

	req := domain.CreateCourseRequest{Title: "", Category: "cooking", Level: "wizard", Plan: "gold"}
	_, err := svc.Create(asRole("t1", "u1", tenantctx.RoleAdmin), req)
	require.Error(t, err)

	var verrs *validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs.Fields, 4)
}

func TestUpdateRefreshesSlug(t *testing.T) {
	svc := setup(t)

	course, err := svc.Create(asRole("t1", "u1", tenantctx.RoleInstructor), validCreate())
	require.NoError(t, err)

	title := "Advanced Go Patterns"
	updated, err := svc.Update(asRole("t1", "u2", tenantctx.RoleAdmin), course.ID, domain.UpdateCourseRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "advanced-go-patterns", updated.Slug)
	assert.Equal(t, int64(2), updated.Version)
}

func TestUpdateClearsPlan(t *testing.T) {
	svc := setup(t)

	req := validCreate()
	req.Plan = "basic"
	course, err := svc.Create(asRole("t1", "u1", tenantctx.RoleInstructor), req)
	require.NoError(t, err)
	require.Equal(t, 19.0, course.PriceAmount)

	empty := ""
	updated, err := svc.Update(asRole("t1", "u1", tenantctx.RoleInstructor), course.ID, domain.UpdateCourseRequest{Plan: &empty})
	require.NoError(t, err)
	assert.Zero(t, updated.PriceAmount)
	assert.Empty(t, updated.Plan)
}

func TestDeleteRoleGate(t *testing.T) {
	svc := setup(t)

	course, err := svc.Create(asRole("t1", "u1", tenantctx.RoleInstructor), validCreate())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(asRole("t1", "u2", tenantctx.RoleMember), course.ID), authorization.ErrForbidden)
	require.NoError(t, svc.Delete(asRole("t1", "u2", tenantctx.RolePremiumUser), course.ID))

	_, err = svc.Get(asRole("t1", "u1", tenantctx.RoleMember), course.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
