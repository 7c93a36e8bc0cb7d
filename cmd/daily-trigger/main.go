package main

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/judgmentnewsflow/internal/config"
	"github.com/Lllllllleong/judgmentnewsflow/internal/gcp"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
	"github.com/Lllllllleong/judgmentnewsflow/internal/services"
)

var (
	pipelineInstance *services.PipelineFunction
	once             sync.Once
	initErr          error
)

// messagePublishedData is the CloudEvent payload Pub/Sub delivers.
type messagePublishedData struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
}

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Cloud Scheduler publishes to the topic this function subscribes to.
	functions.CloudEvent("TriggerDailyNewsletter", triggerDailyNewsletter)
}

func main() {
	port := cmp.Or(os.Getenv("PORT"), "8080")
	if err := funcframework.Start(port); err != nil {
		slog.Error("Functions framework exited", "error", err)
		os.Exit(1)
	}
}

func newPipeline(ctx context.Context) (*services.PipelineFunction, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.New("configuration help requested")
	}
	slog.SetDefault(cfg.NewLogger())
	if cfg.WorkflowID == "" {
		return nil, errors.New("WORKFLOW_ID must be set")
	}

	trigger, err := gcp.NewWorkflowTrigger(ctx, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
	if err != nil {
		return nil, err
	}
	return services.NewPipeline(trigger, services.PipelineDefaults{
		RecipientListID:    cfg.DefaultListID,
		ScheduledTimeOfDay: cfg.DefaultSendTime,
		AMPMPeriod:         cfg.DefaultSendPeriod,
		SenderName:         cfg.DefaultSenderName,
		Location:           cfg.ScheduleLocation,
	}), nil
}

// triggerDailyNewsletter starts the pipeline workflow. The message body may
// override any pipeline default; an empty body runs today's newsletter.
func triggerDailyNewsletter(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		pipelineInstance, initErr = newPipeline(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	req, err := decodeTriggerRequest(e.Data())
	if err != nil {
		slog.Error("Failed to decode trigger event", "error", err, "data", string(e.Data()))
		return err
	}

	_, err = pipelineInstance.Process(ctx, req)
	return err
}

// decodeTriggerRequest unwraps a Pub/Sub CloudEvent payload. An empty message
// yields an empty request so every field takes its configured default.
func decodeTriggerRequest(data []byte) (*models.PipelineTriggerRequest, error) {
	var msg messagePublishedData
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("json.Unmarshal event: %w", err)
	}

	var req models.PipelineTriggerRequest
	if len(bytes.TrimSpace(msg.Message.Data)) > 0 {
		if err := json.Unmarshal(msg.Message.Data, &req); err != nil {
			return nil, fmt.Errorf("json.Unmarshal message: %w", err)
		}
	}
	return &req, nil
}
