package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/wikindex/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the accumulated
// report from previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
type Step interface {
	// Do executes the pipeline step.
	// Non-critical failures are counted in the report and return nil.
	Do(ctx context.Context, report *model.RunReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their errors
// are recorded in the report, but subsequent steps still execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence and sets report.FinishedAt.
//
// Cancellation is checked before each step; a step interrupted by
// cancellation marks the report as timed out. Returns the first error
// encountered if continueOnError is false.
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	defer func() {
		report.FinishedAt = time.Now()
	}()

	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			report.TimedOut = true
			return err
		}

		p.logger.Info("executing step", "step", step.Name(), "run", report.ID)

		err := step.Do(ctx, report)
		report.PerformedSteps = append(report.PerformedSteps, step.Name())
		if err == nil {
			p.logger.Debug("step completed", "step", step.Name())
			continue
		}

		if ctx.Err() != nil {
			report.TimedOut = true
		}
		p.logger.Error("step failed", "step", step.Name(), "error", err)
		report.Error = err.Error()
		if firstErr == nil {
			firstErr = err
		}
		if !p.continueOnError {
			return err
		}
	}
	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
