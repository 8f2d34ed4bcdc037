package post

import (
	"github.com/smallbiznis/campus/internal/post/domain"
	"github.com/smallbiznis/campus/internal/post/service"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// NewStore builds the posts store with its column allow-lists.
func NewStore(gdb *gorm.DB) repository.Store[domain.Post] {
	return repository.ProvideStore[domain.Post, *domain.Post](gdb, repository.Config{
		PatchColumns:   []string{"title", "content"},
		CounterColumns: []string{domain.CounterComments, domain.CounterLikes},
	})
}

// Module wires the posts feature.
var Module = fx.Module("post",
	fx.Provide(NewStore),
	fx.Provide(func(store repository.Store[domain.Post], ids id.Generator) domain.Service {
		return service.New(store, ids)
	}),
)
