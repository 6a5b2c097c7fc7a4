package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/siyuanflow/internal/batch"
	"github.com/starford/siyuanflow/internal/journal"
	"github.com/starford/siyuanflow/internal/operation"
)

// OperationListResponse lists the catalog.
type OperationListResponse struct {
	Operations []operation.Operation `json:"operations" validate:"required"`
}

// InvokeResponse wraps the result of one operation.
type InvokeResponse struct {
	Data any `json:"data"`
}

// BatchRequest is the request body for running a batch.
type BatchRequest struct {
	Items          []batch.Item `json:"items" validate:"required"`
	ContinueOnFail bool         `json:"continueOnFail" example:"true"`
}

// Validate checks the batch request.
func (r BatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required),
	)
}

// BatchResponse is the outcome of a batch. Aborted is set when the run
// stopped at a failing item.
type BatchResponse struct {
	*batch.Run
	Aborted *errResponse `json:"aborted,omitempty"`
}

// RunItemsResponse lists the stored outcomes of a run.
type RunItemsResponse struct {
	RunID string            `json:"runId" validate:"required"`
	Items []journal.RunItem `json:"items" validate:"required"`
}
