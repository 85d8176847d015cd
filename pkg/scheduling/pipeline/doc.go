/*
Package pipeline chains processing stages into one callable.

A pipeline is an ordered list of stages; each stage receives the
previous stage's output. The chain runs inline through Execute, or as a
single dispatched task through Submit, in which case the whole chain
occupies one worker and is cancelled as one unit.

	p := pipeline.New().
		AddStageFunc("validate", validate).
		AddStageFunc("enrich", enrich).
		AddStageFunc("store", store)

	// Inline
	result, err := p.Execute(ctx, payload)

	// On a dispatcher
	task, err := p.Submit(d, payload)
	res, err := task.Result(time.Minute)

The first failing stage stops the run; its error is wrapped with the
stage name and per-stage outcomes stay available on the Result.
*/
package pipeline
