package dashboard

import (
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/campus/internal/clock"
	commentdomain "github.com/smallbiznis/campus/internal/comment/domain"
	coursedomain "github.com/smallbiznis/campus/internal/course/domain"
	experimentdomain "github.com/smallbiznis/campus/internal/experiment/domain"
	"github.com/smallbiznis/campus/internal/observability/metrics"
	postdomain "github.com/smallbiznis/campus/internal/post/domain"
	"github.com/smallbiznis/campus/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Params collects the dashboard's read-only dependencies.
type Params struct {
	fx.In

	Posts       repository.Store[postdomain.Post]
	Comments    repository.Store[commentdomain.Comment]
	Courses     repository.Store[coursedomain.Course]
	Experiments repository.Store[experimentdomain.Experiment]
	DB          *gorm.DB
	Redis       *redis.Client `optional:"true"`
	Clock       clock.Clock
	Metrics     *metrics.Metrics
}

// Module wires the dashboard feature.
var Module = fx.Module("dashboard",
	fx.Provide(func(p Params) Service {
		return New(p.Posts, p.Comments, p.Courses, p.Experiments, p.DB, p.Redis, p.Clock, p.Metrics)
	}),
)
