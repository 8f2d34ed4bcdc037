package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	postdomain "github.com/smallbiznis/campus/internal/post/domain"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/validation"
)

func (s *Server) ListPosts(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, validation.New("query", "invalid_query", "limit must be an integer"))
		return
	}

	posts, info, err := s.postSvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, "posts", posts, len(posts), info)
}

func (s *Server) CreatePost(c *gin.Context) {
	var req postdomain.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.New("body", "invalid_json", "request body must be valid JSON"))
		return
	}

	created, err := s.postSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusCreated, "post", created)
}

func (s *Server) GetPost(c *gin.Context) {
	post, err := s.postSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "post", post)
}

func (s *Server) UpdatePost(c *gin.Context) {
	var req postdomain.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.New("body", "invalid_json", "request body must be valid JSON"))
		return
	}

	updated, err := s.postSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondEntity(c, http.StatusOK, "post", updated)
}

func (s *Server) DeletePost(c *gin.Context) {
	if err := s.postSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) LikePost(c *gin.Context) {
	if err := s.postSvc.Like(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
