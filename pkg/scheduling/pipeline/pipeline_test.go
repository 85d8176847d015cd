package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vnykmshr/taskflow/internal/testutil"
	"github.com/vnykmshr/taskflow/pkg/scheduling/dispatch"
)

func upper(_ context.Context, input interface{}) (interface{}, error) {
	return strings.ToUpper(input.(string)), nil
}

func exclaim(_ context.Context, input interface{}) (interface{}, error) {
	return input.(string) + "!", nil
}

func TestExecuteChainsStages(t *testing.T) {
	p := New().
		AddStageFunc("upper", upper).
		AddStageFunc("exclaim", exclaim)

	result, err := p.Execute(context.Background(), "hello")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.Output.(string), "HELLO!")
	testutil.AssertEqual(t, result.Input.(string), "hello")
	testutil.AssertEqual(t, len(result.StageResults), 2)
	testutil.AssertEqual(t, result.StageResults[0].Output.(string), "HELLO")
}

func TestExecuteEmptyPipeline(t *testing.T) {
	result, err := New().Execute(context.Background(), 42)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.Output.(int), 42)
}

func TestExecuteStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	ran := false

	p := New().
		AddStageFunc("fail", func(context.Context, interface{}) (interface{}, error) {
			return nil, boom
		}).
		AddStageFunc("never", func(_ context.Context, input interface{}) (interface{}, error) {
			ran = true
			return input, nil
		})

	result, err := p.Execute(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "fail") {
		t.Errorf("error should name the stage: %v", err)
	}
	testutil.AssertEqual(t, ran, false)
	testutil.AssertEqual(t, len(result.StageResults), 1)
	if result.Output != nil {
		t.Errorf("failed run should have no output, got %v", result.Output)
	}
}

func TestExecuteHonoursTimeout(t *testing.T) {
	p := New().
		SetTimeout(20 * time.Millisecond).
		AddStageFunc("slow", func(ctx context.Context, input interface{}) (interface{}, error) {
			select {
			case <-time.After(time.Second):
				return input, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})

	_, err := p.Execute(context.Background(), "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded, got %v", err)
	}
}

func TestStagesReturnsCopy(t *testing.T) {
	p := New().AddStageFunc("one", upper)

	stages := p.Stages()
	testutil.AssertEqual(t, len(stages), 1)
	testutil.AssertEqual(t, stages[0].Name(), "one")

	stages[0] = nil
	testutil.AssertEqual(t, p.Stages()[0].Name(), "one")
}

func TestSubmitRunsOnDispatcher(t *testing.T) {
	d := dispatch.New(dispatch.Config{MaxWorkers: 2})
	testutil.AssertNoError(t, d.Start())
	defer d.Stop()

	p := New().
		AddStageFunc("upper", upper).
		AddStageFunc("exclaim", exclaim)

	task, err := p.Submit(d, "dispatched")
	testutil.AssertNoError(t, err)

	res, err := task.Result(2 * time.Second)
	testutil.AssertNoError(t, err)

	result := res.(*Result)
	testutil.AssertEqual(t, result.Output.(string), "DISPATCHED!")
}

func TestSubmitPropagatesStageError(t *testing.T) {
	d := dispatch.New(dispatch.Config{MaxWorkers: 1})
	testutil.AssertNoError(t, d.Start())
	defer d.Stop()

	boom := errors.New("boom")
	p := New().AddStageFunc("fail", func(context.Context, interface{}) (interface{}, error) {
		return nil, boom
	})

	task, err := p.Submit(d, "x")
	testutil.AssertNoError(t, err)

	_, err = task.Result(2 * time.Second)
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped boom, got %v", err)
	}
	testutil.AssertEqual(t, task.State(), dispatch.Errored)
}
