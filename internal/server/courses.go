package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	coursedomain "github.com/smallbiznis/campus/internal/course/domain"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/validation"
)

func (s *Server) ListCourses(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, validation.New("query", "invalid_query", "limit must be an integer"))
		return
	}

	courses, info, err := s.courseSvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, "courses", courses, len(courses), info)
}

func (s *Server) CreateCourse(c *gin.Context) {
	var req coursedomain.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.New("body", "invalid_json", "request body must be valid JSON"))
		return
	}

	created, err := s.courseSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusCreated, "course", created)
}

func (s *Server) GetCourse(c *gin.Context) {
	course, err := s.courseSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "course", course)
}

func (s *Server) UpdateCourse(c *gin.Context) {
	var req coursedomain.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.New("body", "invalid_json", "request body must be valid JSON"))
		return
	}

	updated, err := s.courseSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "course", updated)
}

func (s *Server) DeleteCourse(c *gin.Context) {
	if err := s.courseSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
