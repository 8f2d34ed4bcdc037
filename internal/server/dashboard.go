package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) DashboardOverview(c *gin.Context) {
	overview, err := s.dashboardSvc.Overview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "overview", overview)
}

func (s *Server) DashboardActivity(c *gin.Context) {
	activity, err := s.dashboardSvc.Activity(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "activity", activity)
}

func (s *Server) DashboardHealth(c *gin.Context) {
	health, err := s.dashboardSvc.Health(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "health", health)
}

func (s *Server) DashboardAnalytics(c *gin.Context) {
	analytics, err := s.dashboardSvc.Analytics(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "analytics", analytics)
}

func (s *Server) DashboardMetrics(c *gin.Context) {
	engagement, err := s.dashboardSvc.Metrics(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "metrics", engagement)
}
