// Package bootstrap wires configuration, logging, diagnostics and a model
// into a runnable simactor application.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/najoast/simactor/config"
	"github.com/najoast/simactor/core"
)

// Model builds the actors of one simulation run
type Model interface {
	// Name identifies the model in logs and errors
	Name() string

	// Build registers actors on run.Router and queues initial envelopes
	Build(ctx context.Context, run *Run) error
}

// Run is the per-run environment handed to Model.Build
type Run struct {
	// Config is the configuration the run was built from
	Config *config.Config

	// Router dispatches the run's envelopes
	Router core.Router

	// Logger is scoped to the model
	Logger *slog.Logger

	finishers []func() error
}

// OnFinish registers fn to run after the router drains, even when the run
// fails. Finishers run in reverse registration order.
func (r *Run) OnFinish(fn func() error) {
	r.finishers = append(r.finishers, fn)
}

// Result summarizes a completed run
type Result struct {
	// Model is the model name
	Model string

	// Stats are the router statistics at the end of the run
	Stats core.RouterStats

	// Duration is the wall-clock time of Build plus Run
	Duration time.Duration
}

// LifecycleEvent represents an event in the application lifecycle
type LifecycleEvent struct {
	Type      string                 `json:"type"`
	Model     string                 `json:"model,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Error     error                  `json:"error,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Lifecycle event types
const (
	EventConfigured     = "app.configured"
	EventRunStarted     = "run.started"
	EventRunFinished    = "run.finished"
	EventRunFailed      = "run.failed"
	EventConfigReloaded = "config.reloaded"
)

// ApplicationError represents an error that occurred during application lifecycle
type ApplicationError struct {
	Operation string
	Model     string
	Err       error
}

func (e *ApplicationError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s failed for model %s: %v", e.Operation, e.Model, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}
