package comment

import (
	"github.com/smallbiznis/campus/internal/async"
	"github.com/smallbiznis/campus/internal/comment/domain"
	"github.com/smallbiznis/campus/internal/comment/service"
	"github.com/smallbiznis/campus/internal/observability/metrics"
	postdomain "github.com/smallbiznis/campus/internal/post/domain"
	"github.com/smallbiznis/campus/pkg/id"
	"github.com/smallbiznis/campus/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// NewStore builds the comments store. Comments are immutable once posted,
// so no patch columns are exposed.
func NewStore(gdb *gorm.DB) repository.Store[domain.Comment] {
	return repository.ProvideStore[domain.Comment, *domain.Comment](gdb, repository.Config{
		ParentColumns: []string{domain.ParentColumn},
	})
}

// Module wires the comments feature.
var Module = fx.Module("comment",
	fx.Provide(NewStore),
	fx.Provide(func(
		comments repository.Store[domain.Comment],
		posts repository.Store[postdomain.Post],
		ids id.Generator,
		runner async.Runner,
		m *metrics.Metrics,
	) domain.Service {
		return service.New(comments, posts, ids, runner, m)
	}),
)
