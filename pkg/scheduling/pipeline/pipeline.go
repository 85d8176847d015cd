package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vnykmshr/taskflow/pkg/scheduling/dispatch"
)

// Stage is a single processing step. Stages receive the previous
// stage's output and produce the next stage's input.
type Stage interface {
	Execute(ctx context.Context, input interface{}) (interface{}, error)
	Name() string
}

type stageFunc struct {
	name string
	fn   func(ctx context.Context, input interface{}) (interface{}, error)
}

func (sf *stageFunc) Execute(ctx context.Context, input interface{}) (interface{}, error) {
	return sf.fn(ctx, input)
}

func (sf *stageFunc) Name() string {
	return sf.name
}

// NewStageFunc creates a stage from a function.
func NewStageFunc(name string, fn func(ctx context.Context, input interface{}) (interface{}, error)) Stage {
	return &stageFunc{name: name, fn: fn}
}

// Pipeline chains stages into one callable. The chain runs inline
// through Execute, or as a single dispatched task through Submit:
// the whole chain occupies one worker and is cancelled as one unit.
type Pipeline interface {
	// AddStage appends a stage to the chain.
	AddStage(stage Stage) Pipeline

	// AddStageFunc appends a function stage to the chain.
	AddStageFunc(name string, fn func(ctx context.Context, input interface{}) (interface{}, error)) Pipeline

	// SetTimeout bounds one full run of the chain.
	SetTimeout(timeout time.Duration) Pipeline

	// Execute runs the chain inline on the calling goroutine.
	Execute(ctx context.Context, input interface{}) (*Result, error)

	// Descriptor packages the chain as a submittable task descriptor.
	// The dispatched task's result is the *Result of the run.
	Descriptor(input interface{}) dispatch.Descriptor

	// Submit runs the chain on the dispatcher as one bounded task.
	Submit(d *dispatch.Dispatcher, input interface{}) (*dispatch.Task, error)

	// Stages returns the chain's stages in order.
	Stages() []Stage
}

// Result is the outcome of one chain run.
type Result struct {
	Input        interface{}
	Output       interface{}
	Error        error
	Duration     time.Duration
	StageResults []StageResult
}

// StageResult is the outcome of a single stage within a run.
type StageResult struct {
	StageName string
	Output    interface{}
	Error     error
	Duration  time.Duration
}

type pipeline struct {
	mu      sync.RWMutex
	stages  []Stage
	timeout time.Duration
}

// New creates an empty pipeline.
func New() Pipeline {
	return &pipeline{}
}

func (p *pipeline) AddStage(stage Stage) Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, stage)
	return p
}

func (p *pipeline) AddStageFunc(name string, fn func(ctx context.Context, input interface{}) (interface{}, error)) Pipeline {
	return p.AddStage(NewStageFunc(name, fn))
}

func (p *pipeline) SetTimeout(timeout time.Duration) Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = timeout
	return p
}

func (p *pipeline) Stages() []Stage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stages := make([]Stage, len(p.stages))
	copy(stages, p.stages)
	return stages
}

func (p *pipeline) Execute(ctx context.Context, input interface{}) (*Result, error) {
	p.mu.RLock()
	stages := p.stages
	timeout := p.timeout
	p.mu.RUnlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result := &Result{
		Input:        input,
		StageResults: make([]StageResult, 0, len(stages)),
	}

	current := input
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			result.Error = err
			break
		}

		stageStart := time.Now()
		output, err := stage.Execute(ctx, current)
		result.StageResults = append(result.StageResults, StageResult{
			StageName: stage.Name(),
			Output:    output,
			Error:     err,
			Duration:  time.Since(stageStart),
		})

		if err != nil {
			result.Error = fmt.Errorf("stage %s: %w", stage.Name(), err)
			break
		}
		current = output
	}

	if result.Error == nil {
		result.Output = current
	}
	result.Duration = time.Since(start)
	return result, result.Error
}

func (p *pipeline) Descriptor(input interface{}) dispatch.Descriptor {
	return dispatch.Descriptor{
		Func: dispatch.Func(func(ctx context.Context, args []interface{}, _ map[string]interface{}) (interface{}, error) {
			return p.Execute(ctx, args[0])
		}),
		Args: []interface{}{input},
	}
}

func (p *pipeline) Submit(d *dispatch.Dispatcher, input interface{}) (*dispatch.Task, error) {
	return d.Submit(dispatch.MakeTask(p.Descriptor(input)), 0)
}
