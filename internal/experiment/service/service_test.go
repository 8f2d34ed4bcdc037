package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/smallbiznis/campus/internal/authorization"
	"github.com/smallbiznis/campus/internal/experiment/domain"
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

func setup(t *testing.T) domain.Service {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.Experiment{}))

	store := repository.ProvideStore[domain.Experiment, *domain.Experiment](gdb, repository.Config{
		PatchColumns: []string{"name", "hypothesis", "description", "status", "variants"},
	})
	authz, err := authorization.NewService()
	require.NoError(t, err)

	return New(store, id.NewGenerator(), authz)
}

func asInstructor(tenantID, userID string) context.Context {
	return tenantctx.WithIdentity(context.Background(), tenantctx.Identity{
		TenantID: tenantID,
		UserID:   userID,
		Role:     tenantctx.RoleInstructor,
	})
}

func status(s string) *string { return &s }

func TestCreateStartsInDraft(t *testing.T) {
	svc := setup(t)

	exp, err := svc.Create(asInstructor("t1", "u1"), domain.CreateExperimentRequest{Name: "Pricing A/B"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, exp.Status)
	assert.Equal(t, int64(1), exp.Version)
}

func TestCreateStoresVariants(t *testing.T) {
	svc := setup(t)
	variants := json.RawMessage(`[{"name":"control","weight":50},{"name":"treatment","weight":50}]`)

	exp, err := svc.Create(asInstructor("t1", "u1"), domain.CreateExperimentRequest{
		Name:     "Pricing A/B",
		Variants: variants,
	})
	require.NoError(t, err)
	assert.JSONEq(t, string(variants), string(exp.Variants))

	_, err = svc.Create(asInstructor("t1", "u1"), domain.CreateExperimentRequest{
		Name:     "Broken",
		Variants: json.RawMessage(`{not json`),
	})
	var verrs *validation.Errors
	assert.ErrorAs(t, err, &verrs)
}

func TestCreateRoleGate(t *testing.T) {
	svc := setup(t)

	ctx := tenantctx.WithIdentity(context.Background(), tenantctx.Identity{
		TenantID: "t1", UserID: "u1", Role: tenantctx.RolePremiumUser,
	})
	_, err := svc.Create(ctx, domain.CreateExperimentRequest{Name: "Pricing A/B"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestForwardTransitions(t *testing.T) {
	svc := setup(t)
	ctx := asInstructor("t1", "u1")

	exp, err := svc.Create(ctx, domain.CreateExperimentRequest{Name: "Pricing A/B"})
	require.NoError(t, err)

	running, err := svc.Update(ctx, exp.ID, domain.UpdateExperimentRequest{Status: status("running")})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, running.Status)
	assert.Equal(t, int64(2), running.Version)

	completed, err := svc.Update(ctx, exp.ID, domain.UpdateExperimentRequest{Status: status("completed")})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
}

func TestSkippingAStateFailsConditionally(t *testing.T) {
	svc := setup(t)
	ctx := asInstructor("t1", "u1")

	exp, err := svc.Create(ctx, domain.CreateExperimentRequest{Name: "Pricing A/B"})
	require.NoError(t, err)

	// completed requires the row to currently be running; it is draft.
	_, err = svc.Update(ctx, exp.ID, domain.UpdateExperimentRequest{Status: status("completed")})
	assert.ErrorIs(t, err, repository.ErrNotFoundOrForbidden)

	unchanged, err := svc.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, unchanged.Status)
	assert.Equal(t, int64(1), unchanged.Version)
}

func TestInvalidTargetIsValidationError(t *testing.T) {
	svc := setup(t)
	ctx := asInstructor("t1", "u1")

	exp, err := svc.Create(ctx, domain.CreateExperimentRequest{Name: "Pricing A/B"})
	require.NoError(t, err)

	for _, target := range []string{"draft", "archived", ""} {
		_, err := svc.Update(ctx, exp.ID, domain.UpdateExperimentRequest{Status: status(target)})
		var verrs *validation.Errors
		assert.ErrorAs(t, err, &verrs, target)
	}
}

func TestRepeatedTransitionLoses(t *testing.T) {
	svc := setup(t)
	ctx := asInstructor("t1", "u1")

	exp, err := svc.Create(ctx, domain.CreateExperimentRequest{Name: "Pricing A/B"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, exp.ID, domain.UpdateExperimentRequest{Status: status("running")})
	require.NoError(t, err)

	// A second identical transition finds no row in draft.
	_, err = svc.Update(ctx, exp.ID, domain.UpdateExperimentRequest{Status: status("running")})
	assert.ErrorIs(t, err, repository.ErrNotFoundOrForbidden)
}
