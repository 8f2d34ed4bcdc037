package experiment

import (
	"github.com/smallbiznis/campus/internal/authorization"
	"github.com/smallbiznis/campus/internal/experiment/domain"
	"github.com/smallbiznis/campus/internal/experiment/service"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// NewStore builds the experiments store with its column allow-lists.
func NewStore(gdb *gorm.DB) repository.Store[domain.Experiment] {
	return repository.ProvideStore[domain.Experiment, *domain.Experiment](gdb, repository.Config{
		PatchColumns: []string{"name", "hypothesis", "description", "status", "variants"},
	})
}

// Module wires the experiments feature.
var Module = fx.Module("experiment",
	fx.Provide(NewStore),
	fx.Provide(func(store repository.Store[domain.Experiment], ids id.Generator, authz *authorization.Service) domain.Service {
		return service.New(store, ids, authz)
	}),
)
