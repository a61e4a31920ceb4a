// Package interfaces defines core abstractions for the enrichment tool
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"time"

	"github.com/joe-wehbe/mouser-sheets-automation/entities"
)

// SheetGateway defines the contract for reading and writing a worksheet.
// Columns and rows are 1-based; row 1 is the header row.
type SheetGateway interface {
	// ReadColumn returns the values of a column below the header row
	ReadColumn(ctx context.Context, column int) ([]string, error)

	// WriteRange overwrites rows rowStart..rowEnd of a single column
	WriteRange(ctx context.Context, column, rowStart, rowEnd int, values []string) error

	// Describe returns a human readable name for logs and reports
	Describe() string

	Close() error
}

// GatewayOpener opens a fresh SheetGateway for each run
type GatewayOpener func(ctx context.Context) (SheetGateway, error)

// PartResolver defines the contract for resolving a part number against
// the distributor search API. Failures are reported through the outcome,
// never as an error.
type PartResolver interface {
	Resolve(ctx context.Context, partNumber string) (entities.Part, entities.LookupOutcome)
}

// Runner performs one complete enrichment run
type Runner interface {
	Run(ctx context.Context) (*entities.RunReport, error)
}

// RunStore defines the contract for keeping the state of past and current runs.
// It provides thread-safe access for the scheduler and the status server.
type RunStore interface {
	GetLastReport() *entities.RunReport
	GetLastError() error
	GetLastRunTime() time.Time
	GetStartTime() time.Time
	IsRunning() bool

	RecordRun(report *entities.RunReport, err error)
	BeginRun() bool
	EndRun()
}

// Scheduler defines the contract for job scheduling and health monitoring.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the current status, details and the matching HTTP status code
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextRun returns the next scheduled run time
	CalculateNextRun() time.Time
}
