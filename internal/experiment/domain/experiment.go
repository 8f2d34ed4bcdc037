package domain

import (
	"context"
	"encoding/json"

	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/repository"
	"gorm.io/datatypes"
)

// Experiment lifecycle. Transitions only move forward:
// draft -> running -> completed.
const (
	StatusDraft     = "draft"
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// TransitionFrom maps a target status to the status it may leave from.
var TransitionFrom = map[string]string{
	StatusRunning:   StatusDraft,
	StatusCompleted: StatusRunning,
}

// Experiment is a tenant-scoped entity with a forward-only status machine.
type Experiment struct {
	repository.Base
	Name        string         `gorm:"size:200;not null" json:"name"`
	Hypothesis  string         `gorm:"type:text" json:"hypothesis"`
	Description string         `gorm:"type:text" json:"description"`
	Status      string         `gorm:"size:16;not null;default:draft" json:"status"`
	Variants    datatypes.JSON `json:"variants,omitempty"`
}

func (Experiment) TableName() string { return "experiments" }

// CreateExperimentRequest carries the client-supplied fields for a new
// experiment. Experiments always start in draft.
type CreateExperimentRequest struct {
	Name        string          `json:"name"`
	Hypothesis  string          `json:"hypothesis"`
	Description string          `json:"description"`
	Variants    json.RawMessage `json:"variants"`
}

// UpdateExperimentRequest patches an experiment. A non-nil Status requests
// a transition; the store applies it conditionally on the current status so
// racing transitions lose cleanly.
type UpdateExperimentRequest struct {
	Name        *string         `json:"name"`
	Hypothesis  *string         `json:"hypothesis"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	Variants    json.RawMessage `json:"variants"`
}

// Service exposes experiment operations.
type Service interface {
	Create(ctx context.Context, req CreateExperimentRequest) (*Experiment, error)
	Get(ctx context.Context, id string) (*Experiment, error)
	List(ctx context.Context, page pagination.Pagination) ([]*Experiment, *pagination.PageInfo, error)
	Update(ctx context.Context, id string, req UpdateExperimentRequest) (*Experiment, error)
	Delete(ctx context.Context, id string) error
}
