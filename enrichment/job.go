package enrichment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/joe-wehbe/mouser-sheets-automation/entities"
	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
	"github.com/joe-wehbe/mouser-sheets-automation/logging"
	"github.com/joe-wehbe/mouser-sheets-automation/metrics"
)

// Compile-time check to ensure Job implements Runner
var _ interfaces.Runner = (*Job)(nil)

// Job opens the sheet, runs the pipeline against it and closes it again
type Job struct {
	open     interfaces.GatewayOpener
	pipeline *Pipeline
}

// NewJob creates a runner that opens a fresh gateway for every run
func NewJob(open interfaces.GatewayOpener, pipeline *Pipeline) *Job {
	return &Job{
		open:     open,
		pipeline: pipeline,
	}
}

// Run implements interfaces.Runner
func (j *Job) Run(ctx context.Context) (*entities.RunReport, error) {
	runID := uuid.NewString()

	gateway, err := j.open(ctx)
	if err != nil {
		metrics.ObserveRun(nil, err)
		return nil, fmt.Errorf("failed to open sheet: %w", err)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logging.Warn("Failed to close sheet", "source", gateway.Describe(), "error", err)
		}
	}()

	return j.pipeline.Run(ctx, runID, gateway)
}
