package course

import (
	"github.com/smallbiznis/campus/internal/authorization"
	"github.com/smallbiznis/campus/internal/course/domain"
	"github.com/smallbiznis/campus/internal/course/service"
	"github.com/smallbiznis/campus/internal/pricing"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// NewStore builds the courses store with its column allow-lists.
func NewStore(gdb *gorm.DB) repository.Store[domain.Course] {
	return repository.ProvideStore[domain.Course, *domain.Course](gdb, repository.Config{
		PatchColumns: []string{"title", "slug", "description", "category", "level", "plan", "price_amount", "price_currency"},
	})
}

// Module wires the courses feature.
var Module = fx.Module("course",
	fx.Provide(NewStore),
	fx.Provide(func(
		store repository.Store[domain.Course],
		ids id.Generator,
		authz *authorization.Service,
		prices *pricing.Table,
	) domain.Service {
		return service.New(store, ids, authz, prices)
	}),
)
