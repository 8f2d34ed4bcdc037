package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/campus/internal/authorization"
	"github.com/smallbiznis/campus/internal/billing"
	billingdomain "github.com/smallbiznis/campus/internal/billing/domain"
	"github.com/smallbiznis/campus/internal/comment"
	commentdomain "github.com/smallbiznis/campus/internal/comment/domain"
	"github.com/smallbiznis/campus/internal/config"
	"github.com/smallbiznis/campus/internal/course"
	coursedomain "github.com/smallbiznis/campus/internal/course/domain"
	"github.com/smallbiznis/campus/internal/dashboard"
	"github.com/smallbiznis/campus/internal/experiment"
	experimentdomain "github.com/smallbiznis/campus/internal/experiment/domain"
	"github.com/smallbiznis/campus/internal/observability"
	obslogger "github.com/smallbiznis/campus/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/campus/internal/observability/metrics"
	obstracing "github.com/smallbiznis/campus/internal/observability/tracing"
	"github.com/smallbiznis/campus/internal/post"
	postdomain "github.com/smallbiznis/campus/internal/post/domain"
	"github.com/smallbiznis/campus/internal/pricing"
	"github.com/smallbiznis/campus/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module assembles the HTTP surface and every feature behind it.
var Module = fx.Module("http.server",
	authorization.Module,
	pricing.Module,
	post.Module,
	comment.Module,
	course.Module,
	experiment.Module,
	dashboard.Module,
	billing.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

// Server owns the gin engine and dispatches to the domain services.
type Server struct {
	engine *gin.Engine
	cfg    config.Config

	authz          *authorization.Service
	postSvc        postdomain.Service
	commentSvc     commentdomain.Service
	courseSvc      coursedomain.Service
	experimentSvc  experimentdomain.Service
	dashboardSvc   dashboard.Service
	billingSvc     billingdomain.Service
	webhookLimiter *ratelimit.Limiter
	metrics        *obsmetrics.Metrics
}

// ServerParams collects the server dependencies.
type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Authz          *authorization.Service
	PostSvc        postdomain.Service
	CommentSvc     commentdomain.Service
	CourseSvc      coursedomain.Service
	ExperimentSvc  experimentdomain.Service
	DashboardSvc   dashboard.Service
	BillingSvc     billingdomain.Service
	WebhookLimiter *ratelimit.Limiter
	Metrics        *obsmetrics.Metrics
}

// NewServer builds the server and registers every route.
func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		authz:          p.Authz,
		postSvc:        p.PostSvc,
		commentSvc:     p.CommentSvc,
		courseSvc:      p.CourseSvc,
		experimentSvc:  p.ExperimentSvc,
		dashboardSvc:   p.DashboardSvc,
		billingSvc:     p.BillingSvc,
		webhookLimiter: p.WebhookLimiter,
		metrics:        p.Metrics,
	}

	s.engine.Use(s.ErrorHandlingMiddleware())
	s.engine.Use(s.IdentityMiddleware())
	s.registerRoutes()
	s.registerFallbacks()
	return s
}

// Engine exposes the underlying engine, mainly for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, registry)
}

// NewEngine builds the engine with the ambient middleware stack. Routes
// matched on path but not on verb answer 405, not 404.
func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obsCfg.ServiceName))
	r.Use(httpMetrics.GinMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
