package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	experimentdomain "github.com/smallbiznis/campus/internal/experiment/domain"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/validation"
)

func (s *Server) ListExperiments(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, validation.New("query", "invalid_query", "limit must be an integer"))
		return
	}

	experiments, info, err := s.experimentSvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, "experiments", experiments, len(experiments), info)
}

func (s *Server) CreateExperiment(c *gin.Context) {
	var req experimentdomain.CreateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.New("body", "invalid_json", "request body must be valid JSON"))
		return
	}

	created, err := s.experimentSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusCreated, "experiment", created)
}

func (s *Server) GetExperiment(c *gin.Context) {
	experiment, err := s.experimentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "experiment", experiment)
}

func (s *Server) UpdateExperiment(c *gin.Context) {
	var req experimentdomain.UpdateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.New("body", "invalid_json", "request body must be valid JSON"))
		return
	}

	updated, err := s.experimentSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "experiment", updated)
}

func (s *Server) DeleteExperiment(c *gin.Context) {
	if err := s.experimentSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
