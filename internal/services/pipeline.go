package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/judgmentnewsflow/internal/dates"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
)

// WorkflowStarter starts one run of the pipeline workflow and returns the execution name.
type WorkflowStarter interface {
	Start(ctx context.Context, argument any) (string, error)
}

// PipelineDefaults fill the fields a trigger leaves empty.
type PipelineDefaults struct {
	RecipientListID    int64
	ScheduledTimeOfDay string
	AMPMPeriod         string
	SenderName         string
	Location           *time.Location
}

// PipelineFunction starts a full fetch-to-schedule run for one date.
type PipelineFunction struct {
	starter  WorkflowStarter
	defaults PipelineDefaults
	now      func() time.Time
}

func NewPipeline(starter WorkflowStarter, defaults PipelineDefaults) *PipelineFunction {
	if defaults.Location == nil {
		defaults.Location = time.UTC
	}
	return &PipelineFunction{starter: starter, defaults: defaults, now: time.Now}
}

func (f *PipelineFunction) Process(ctx context.Context, req *models.PipelineTriggerRequest) (*models.PipelineTriggerResponse, error) {
	today := f.now().In(f.defaults.Location)
	run := models.PipelineTriggerRequest{
		Date:               cmp.Or(req.Date, dates.Format(today)),
		RecipientListID:    cmp.Or(req.RecipientListID, f.defaults.RecipientListID),
		ScheduledTimeOfDay: cmp.Or(req.ScheduledTimeOfDay, f.defaults.ScheduledTimeOfDay),
		AMPMPeriod:         cmp.Or(req.AMPMPeriod, f.defaults.AMPMPeriod),
		SenderName:         cmp.Or(req.SenderName, f.defaults.SenderName),
	}

	if _, err := dates.Parse(run.Date); err != nil {
		return nil, err
	}
	if run.RecipientListID == 0 {
		return nil, fmt.Errorf("%w: recipient list id is required", ErrInvalidRequest)
	}
	if _, err := dates.LocalToUTC(today, run.ScheduledTimeOfDay, run.AMPMPeriod, f.defaults.Location); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if run.SenderName == "" {
		return nil, fmt.Errorf("%w: sender name is required", ErrInvalidRequest)
	}

	logCtx := slog.With("date", run.Date)
	logCtx.Info("Triggering pipeline workflow.")
	execution, err := f.starter.Start(ctx, run)
	if err != nil {
		logCtx.Error("Failed to start pipeline workflow", "error", err)
		return nil, err
	}
	logCtx.Info("Pipeline workflow started.", "execution", execution)
	return &models.PipelineTriggerResponse{
		Message:   fmt.Sprintf("Pipeline started for %s", run.Date),
		Execution: execution,
	}, nil
}
