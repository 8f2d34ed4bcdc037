package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/campus/internal/cache"
	"github.com/smallbiznis/campus/internal/clock"
	commentdomain "github.com/smallbiznis/campus/internal/comment/domain"
	coursedomain "github.com/smallbiznis/campus/internal/course/domain"
	experimentdomain "github.com/smallbiznis/campus/internal/experiment/domain"
	"github.com/smallbiznis/campus/internal/observability/logger"
	"github.com/smallbiznis/campus/internal/observability/metrics"
	postdomain "github.com/smallbiznis/campus/internal/post/domain"
	"github.com/smallbiznis/campus/internal/tenantctx"
	"github.com/smallbiznis/campus/pkg/db/option"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// queryBudget bounds the whole fan-out; a sub-query that misses it
// degrades its metric instead of failing the response.
const queryBudget = 2 * time.Second

const activityLimit = 10

// overviewTTL bounds staleness of the cached census. Counts are advisory,
// so a short window of stale reads is acceptable.
const overviewTTL = 10 * time.Second

// Overview is the per-tenant entity census.
type Overview struct {
	Posts       int64     `json:"posts"`
	Comments    int64     `json:"comments"`
	Courses     int64     `json:"courses"`
	Experiments int64     `json:"experiments"`
	Degraded    []string  `json:"degraded,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ActivityItem is one row of the merged recent-activity feed.
type ActivityItem struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is the merged newest-first feed of posts and comments.
type Activity struct {
	Items    []ActivityItem `json:"items"`
	Degraded []string       `json:"degraded,omitempty"`
}

// Health reports dependency reachability.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SeriesPoint is one day of a creation series.
type SeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Analytics carries totals plus a 7-day post creation series.
type Analytics struct {
	Totals      map[string]int64 `json:"totals"`
	PostsPerDay []SeriesPoint    `json:"posts_per_day"`
	Degraded    []string         `json:"degraded,omitempty"`
}

// EngagementMetrics summarizes advisory counters across a tenant.
type EngagementMetrics struct {
	Posts           int64    `json:"posts"`
	Comments        int64    `json:"comments"`
	Likes           int64    `json:"likes"`
	CommentsPerPost float64  `json:"comments_per_post"`
	Degraded        []string `json:"degraded,omitempty"`
}

// Service aggregates read-only views across entity kinds.
type Service interface {
	Overview(ctx context.Context) (*Overview, error)
	Activity(ctx context.Context) (*Activity, error)
	Health(ctx context.Context) (*Health, error)
	Analytics(ctx context.Context) (*Analytics, error)
	Metrics(ctx context.Context) (*EngagementMetrics, error)
}

type service struct {
	posts       repository.Store[postdomain.Post]
	comments    repository.Store[commentdomain.Comment]
	courses     repository.Store[coursedomain.Course]
	experiments repository.Store[experimentdomain.Experiment]

	gdb     *gorm.DB
	rdb     *redis.Client
	clk     clock.Clock
	metrics *metrics.Metrics

	overviews *cache.TTLCache[string, *Overview]
}

// New builds the dashboard service. rdb may be nil when redis is not
// configured.
func New(
	posts repository.Store[postdomain.Post],
	comments repository.Store[commentdomain.Comment],
	courses repository.Store[coursedomain.Course],
	experiments repository.Store[experimentdomain.Experiment],
	gdb *gorm.DB,
	rdb *redis.Client,
	clk clock.Clock,
	m *metrics.Metrics,
) Service {
	return &service{
		posts:       posts,
		comments:    comments,
		courses:     courses,
		experiments: experiments,
		gdb:         gdb,
		rdb:         rdb,
		clk:         clk,
		metrics:     m,
		overviews:   cache.NewTTLCache[string, *Overview](overviewTTL),
	}
}

// collector accumulates degraded section names across parallel sub-queries.
type collector struct {
	mu       sync.Mutex
	degraded []string
}

func (c *collector) degrade(section string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.degraded = append(c.degraded, section)
}

func (c *collector) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.Strings(c.degraded)
	return c.degraded
}

func (s *service) Overview(ctx context.Context) (*Overview, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}
	if cached, ok := s.overviews.Get(identity.TenantID); ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryBudget)
	defer cancel()

	out := &Overview{GeneratedAt: s.clk.Now()}
	col := &collector{}
	var wg sync.WaitGroup

	s.countInto(ctx, &wg, col, "posts", &out.Posts, func(ctx context.Context) (int64, error) {
		return s.posts.Count(ctx, identity.TenantID)
	})
	s.countInto(ctx, &wg, col, "comments", &out.Comments, func(ctx context.Context) (int64, error) {
		return s.comments.Count(ctx, identity.TenantID)
	})
	s.countInto(ctx, &wg, col, "courses", &out.Courses, func(ctx context.Context) (int64, error) {
		return s.courses.Count(ctx, identity.TenantID)
	})
	s.countInto(ctx, &wg, col, "experiments", &out.Experiments, func(ctx context.Context) (int64, error) {
		return s.experiments.Count(ctx, identity.TenantID)
	})

	wg.Wait()
	out.Degraded = col.list()
	// Degraded results are not cached so the next read retries the store.
	if len(out.Degraded) == 0 {
		s.overviews.Set(identity.TenantID, out)
	}
	return out, nil
}

func (s *service) Activity(ctx context.Context) (*Activity, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}

	ctx, cancel := context.WithTimeout(ctx, queryBudget)
	defer cancel()

	col := &collector{}
	var wg sync.WaitGroup
	var posts []*postdomain.Post
	var comments []*commentdomain.Comment

	wg.Add(2)
	go func() {
		defer wg.Done()
		rows, _, err := s.posts.QueryRecent(ctx, identity.TenantID, pagination.Pagination{PageSize: activityLimit})
		if err != nil {
			s.reportDegraded(ctx, col, "posts", err)
			return
		}
		posts = rows
	}()
	go func() {
		defer wg.Done()
		rows, _, err := s.comments.QueryRecent(ctx, identity.TenantID, pagination.Pagination{PageSize: activityLimit})
		if err != nil {
			s.reportDegraded(ctx, col, "comments", err)
			return
		}
		comments = rows
	}()
	wg.Wait()

	items := make([]ActivityItem, 0, len(posts)+len(comments))
	for _, p := range posts {
		items = append(items, ActivityItem{
			Kind: "post", ID: p.ID, AuthorID: p.AuthorID, Summary: p.Title, CreatedAt: p.CreatedAt,
		})
	}
	for _, c := range comments {
		items = append(items, ActivityItem{
			Kind: "comment", ID: c.ID, AuthorID: c.AuthorID, Summary: c.Content, CreatedAt: c.CreatedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > 2*activityLimit {
		items = items[:2*activityLimit]
	}

	return &Activity{Items: items, Degraded: col.list()}, nil
}

func (s *service) Health(ctx context.Context) (*Health, error) {
	ctx, cancel := context.WithTimeout(ctx, queryBudget)
	defer cancel()

	checks := map[string]string{}
	status := "ok"

	if sqlDB, err := s.gdb.DB(); err != nil {
		checks["database"] = "unavailable"
		status = "degraded"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		checks["database"] = "unavailable"
		status = "degraded"
	} else {
		checks["database"] = "ok"
	}

	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unavailable"
			status = "degraded"
		} else {
			checks["redis"] = "ok"
		}
	}

	return &Health{Status: status, Checks: checks}, nil
}

func (s *service) Analytics(ctx context.Context) (*Analytics, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}

	ctx, cancel := context.WithTimeout(ctx, queryBudget)
	defer cancel()

	out := &Analytics{
		Totals:      make(map[string]int64, 4),
		PostsPerDay: make([]SeriesPoint, 7),
	}
	col := &collector{}
	var wg sync.WaitGroup
	var mu sync.Mutex

	totals := map[string]func(ctx context.Context) (int64, error){
		"posts":       func(ctx context.Context) (int64, error) { return s.posts.Count(ctx, identity.TenantID) },
		"comments":    func(ctx context.Context) (int64, error) { return s.comments.Count(ctx, identity.TenantID) },
		"courses":     func(ctx context.Context) (int64, error) { return s.courses.Count(ctx, identity.TenantID) },
		"experiments": func(ctx context.Context) (int64, error) { return s.experiments.Count(ctx, identity.TenantID) },
	}
	for name, query := range totals {
		name, query := name, query
		wg.Add(1)
		go func() {
			defer wg.Done()
			count, err := query(ctx)
			if err != nil {
				s.reportDegraded(ctx, col, name, err)
				return
			}
			mu.Lock()
			out.Totals[name] = count
			mu.Unlock()
		}()
	}

	today := s.clk.Now().Truncate(24 * time.Hour)
	for i := 0; i < 7; i++ {
		dayStart := today.AddDate(0, 0, i-6)
		dayEnd := dayStart.AddDate(0, 0, 1)
		point := &out.PostsPerDay[i]
		point.Date = dayStart.Format("2006-01-02")

		wg.Add(1)
		go func() {
			defer wg.Done()
			count, err := s.posts.Count(ctx, identity.TenantID,
				option.Where("created_at >= ? AND created_at < ?", dayStart, dayEnd))
			if err != nil {
				s.reportDegraded(ctx, col, "posts_per_day:"+point.Date, err)
				return
			}
			point.Count = count
		}()
	}

	wg.Wait()
	out.Degraded = col.list()
	return out, nil
}

func (s *service) Metrics(ctx context.Context) (*EngagementMetrics, error) {
	identity, ok := tenantctx.IdentityFromContext(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingIdentity
	}

	ctx, cancel := context.WithTimeout(ctx, queryBudget)
	defer cancel()

	out := &EngagementMetrics{}
	col := &collector{}
	var wg sync.WaitGroup

	s.countInto(ctx, &wg, col, "posts", &out.Posts, func(ctx context.Context) (int64, error) {
		return s.posts.Count(ctx, identity.TenantID)
	})
	s.countInto(ctx, &wg, col, "comments", &out.Comments, func(ctx context.Context) (int64, error) {
		return s.comments.Count(ctx, identity.TenantID)
	})
	s.countInto(ctx, &wg, col, "likes", &out.Likes, func(ctx context.Context) (int64, error) {
		return s.sumPostCounter(ctx, identity.TenantID, postdomain.CounterLikes)
	})

	wg.Wait()
	if out.Posts > 0 {
		out.CommentsPerPost = float64(out.Comments) / float64(out.Posts)
	}
	out.Degraded = col.list()
	return out, nil
}

// sumPostCounter totals an advisory counter column across the tenant.
func (s *service) sumPostCounter(ctx context.Context, tenantID, column string) (int64, error) {
	var total int64
	err := s.gdb.WithContext(ctx).
		Model(&postdomain.Post{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(SUM(" + column + "), 0)").
		Scan(&total).Error
	return total, err
}

func (s *service) countInto(ctx context.Context, wg *sync.WaitGroup, col *collector, section string, dst *int64, query func(ctx context.Context) (int64, error)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		count, err := query(ctx)
		if err != nil {
			s.reportDegraded(ctx, col, section, err)
			return
		}
		*dst = count
	}()
}

func (s *service) reportDegraded(ctx context.Context, col *collector, section string, err error) {
	col.degrade(section)
	s.metrics.DashboardDegraded(ctx, section)
	logger.FromContext(ctx).Warn("dashboard sub-query degraded",
		zap.String("section", section),
		zap.Error(err),
	)
}
