package domain

import (
	"context"

	"github.com/smallbiznis/campus/pkg/repository"
)

// ParentColumn keys child queries under a post.
const ParentColumn = "post_id"

// Comment is a child entity of Post. Listing is oldest-first.
type Comment struct {
	repository.Base
	PostID  string `gorm:"column:post_id;size:32;not null;index" json:"post_id"`
	Content string `gorm:"type:text;not null" json:"content"`
}

func (Comment) TableName() string { return "comments" }

// CreateCommentRequest carries the client-supplied fields for a new comment.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// Service exposes comment operations.
type Service interface {
	Create(ctx context.Context, postID string, req CreateCommentRequest) (*Comment, error)
	ListByPost(ctx context.Context, postID string, limit int) ([]*Comment, error)
	Delete(ctx context.Context, commentID string) error
}
