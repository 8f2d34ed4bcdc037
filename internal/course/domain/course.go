package domain

import (
	"context"

	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/repository"
)

// Category values accepted for a course.
var Categories = []string{"programming", "design", "business", "marketing", "science", "other"}

// Level values accepted for a course.
var Levels = []string{"beginner", "intermediate", "advanced"}

// Course is a tenant-scoped entity; create/update/delete are role-gated.
type Course struct {
	repository.Base
	Title         string  `gorm:"size:200;not null" json:"title"`
	Slug          string  `gorm:"size:220;not null;index" json:"slug"`
	Description   string  `gorm:"type:text" json:"description"`
	Category      string  `gorm:"size:32;not null" json:"category"`
	Level         string  `gorm:"size:16;not null" json:"level"`
	Plan          string  `gorm:"size:32" json:"plan,omitempty"`
	PriceAmount   float64 `gorm:"not null;default:0" json:"price_amount"`
	PriceCurrency string  `gorm:"size:8" json:"price_currency,omitempty"`
}

func (Course) TableName() string { return "courses" }

// CreateCourseRequest carries the client-supplied fields for a new course.
type CreateCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Level       string `json:"level"`
	Plan        string `json:"plan"`
}

// UpdateCourseRequest patches a course. Nil fields are left untouched.
type UpdateCourseRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Level       *string `json:"level"`
	Plan        *string `json:"plan"`
}

// Service exposes course operations.
type Service interface {
	Create(ctx context.Context, req CreateCourseRequest) (*Course, error)
	Get(ctx context.Context, id string) (*Course, error)
	List(ctx context.Context, page pagination.Pagination) ([]*Course, *pagination.PageInfo, error)
	Update(ctx context.Context, id string, req UpdateCourseRequest) (*Course, error)
	Delete(ctx context.Context, id string) error
}
