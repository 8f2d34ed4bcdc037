package domain

import (
	"context"

	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/repository"
)

// Counter columns owned by Post. Advisory only; the authoritative count is
// always a child query.
const (
	CounterComments = "comments_count"
	CounterLikes    = "likes_count"
)

// Post is a tenant-scoped, owner-scoped entity.
type Post struct {
	repository.Base
	Title         string `gorm:"size:200;not null" json:"title"`
	Content       string `gorm:"type:text;not null" json:"content"`
	CommentsCount int64  `gorm:"not null;default:0" json:"comments_count"`
	LikesCount    int64  `gorm:"not null;default:0" json:"likes_count"`
}

func (Post) TableName() string { return "posts" }

// CreatePostRequest carries the client-supplied fields for a new post.
type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdatePostRequest patches a post. Nil fields are left untouched.
type UpdatePostRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Service exposes post operations. Tenant and caller always come from the
// request context, never from the payload.
type Service interface {
	Create(ctx context.Context, req CreatePostRequest) (*Post, error)
	Get(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context, page pagination.Pagination) ([]*Post, *pagination.PageInfo, error)
	Update(ctx context.Context, id string, req UpdatePostRequest) (*Post, error)
	Delete(ctx context.Context, id string) error
	Like(ctx context.Context, id string) error
}
