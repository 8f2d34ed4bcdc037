package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	commentdomain "github.com/smallbiznis/campus/internal/comment/domain"
	"github.com/smallbiznis/campus/pkg/validation"
)

func (s *Server) ListComments(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, validation.New("query", "invalid_query", "limit must be an integer"))
			return
		}
		limit = parsed
	}

	comments, err := s.commentSvc.ListByPost(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, "comments", comments, len(comments), nil)
}

func (s *Server) CreateComment(c *gin.Context) {
	var req commentdomain.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.New("body", "invalid_json", "request body must be valid JSON"))
		return
	}

	created, err := s.commentSvc.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusCreated, "comment", created)
}

func (s *Server) DeleteComment(c *gin.Context) {
	if err := s.commentSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
