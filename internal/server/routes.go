package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// route declares one operation: its verb, path, the permission guarding it
// and the handler. Public routes leave object empty.
type route struct {
	method  string
	path    string
	object  string
	action  string
	handler gin.HandlerFunc
}

// routes is the full authorization-bearing route table. A test checks that
// every guarded entry has a matching policy, so a new route cannot ship
// without a grant.
func (s *Server) routes() []route {
	return []route{
		{http.MethodGet, "/posts", "posts", "read", s.ListPosts},
		{http.MethodPost, "/posts", "posts", "create", s.CreatePost},
		{http.MethodGet, "/posts/:id", "posts", "read", s.GetPost},
		{http.MethodPut, "/posts/:id", "posts", "update", s.UpdatePost},
		{http.MethodDelete, "/posts/:id", "posts", "delete", s.DeletePost},
		{http.MethodPost, "/posts/:id/like", "posts", "like", s.LikePost},

		{http.MethodGet, "/posts/:id/comments", "comments", "read", s.ListComments},
		{http.MethodPost, "/posts/:id/comments", "comments", "create", s.CreateComment},
		{http.MethodDelete, "/comments/:id", "comments", "delete", s.DeleteComment},

		{http.MethodGet, "/education/courses", "courses", "read", s.ListCourses},
		{http.MethodPost, "/education/courses", "courses", "create", s.CreateCourse},
		{http.MethodGet, "/education/courses/:id", "courses", "read", s.GetCourse},
		{http.MethodPut, "/education/courses/:id", "courses", "update", s.UpdateCourse},
		{http.MethodPatch, "/education/courses/:id", "courses", "update", s.UpdateCourse},
		{http.MethodDelete, "/education/courses/:id", "courses", "delete", s.DeleteCourse},

		{http.MethodGet, "/experiments", "experiments", "read", s.ListExperiments},
		{http.MethodPost, "/experiments", "experiments", "create", s.CreateExperiment},
		{http.MethodGet, "/experiments/:id", "experiments", "read", s.GetExperiment},
		{http.MethodPut, "/experiments/:id", "experiments", "update", s.UpdateExperiment},
		{http.MethodDelete, "/experiments/:id", "experiments", "delete", s.DeleteExperiment},

		{http.MethodGet, "/dashboard/overview", "dashboard", "read", s.DashboardOverview},
		{http.MethodGet, "/dashboard/activity", "dashboard", "read", s.DashboardActivity},
		{http.MethodGet, "/dashboard/health", "dashboard", "read", s.DashboardHealth},
		{http.MethodGet, "/dashboard/analytics", "dashboard", "read", s.DashboardAnalytics},
		{http.MethodGet, "/dashboard/metrics", "dashboard", "read", s.DashboardMetrics},

		// Provider deliveries authenticate by signature, not by role.
		{http.MethodPost, "/webhooks/:provider", "", "", s.HandleWebhook},
	}
}

func (s *Server) registerRoutes() {
	for _, rt := range s.routes() {
		handlers := []gin.HandlerFunc{}
		if rt.object != "" {
			handlers = append(handlers, s.requirePermission(rt.object, rt.action))
		}
		handlers = append(handlers, rt.handler)
		s.engine.Handle(rt.method, rt.path, handlers...)
	}
}

func (s *Server) registerFallbacks() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{
			Error:     "not_found",
			Message:   "no route matches this path",
			RequestID: c.GetString("request_id"),
		})
	})
	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{
			Error:     "method_not_allowed",
			Message:   "the resource exists but not for this verb",
			RequestID: c.GetString("request_id"),
		})
	})
}
