package services

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/googleapis/gax-go/v2"

	"github.com/Lllllllleong/formsummary/internal/models"
	"github.com/Lllllllleong/formsummary/internal/store"
)

type executionCreator interface {
	CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest, opts ...gax.CallOption) (*executionspb.Execution, error)
}

// WorkflowFollowUp starts a Cloud Workflows execution for every completed
// submission, e.g. to prepare an internal briefing from the same answers.
type WorkflowFollowUp struct {
	client executionCreator
	parent string
}

// NewWorkflowFollowUp targets the workflow identified by parent
// (see gcp.WorkflowParent).
func NewWorkflowFollowUp(client executionCreator, parent string) *WorkflowFollowUp {
	return &WorkflowFollowUp{client: client, parent: parent}
}

func (f *WorkflowFollowUp) Name() string { return "followup" }

type followUpArgument struct {
	SubmissionID string `json:"submissionId"`
	DocumentID   string `json:"documentId"`
	Status       string `json:"status"`
}

func (f *WorkflowFollowUp) AfterComplete(ctx context.Context, sub models.Submission) error {
	payload, err := json.Marshal(followUpArgument{
		SubmissionID: sub.ID,
		DocumentID:   store.DocumentID(sub.ID),
		Status:       string(sub.Status),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}

	req := &executionspb.CreateExecutionRequest{
		Parent: f.parent,
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	if _, err := f.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}
