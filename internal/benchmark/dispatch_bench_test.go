package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/vnykmshr/taskflow/pkg/scheduling/dispatch"
)

func startDispatcher(b *testing.B, workers int) *dispatch.Dispatcher {
	b.Helper()
	d := dispatch.New(dispatch.Config{MaxWorkers: workers, IdleTimeout: time.Minute})
	if err := d.Start(); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = d.Stop() })
	return d
}

func BenchmarkSubmitSync(b *testing.B) {
	d := startDispatcher(b, 4)
	fn := dispatch.Func(func(context.Context, []interface{}, map[string]interface{}) (interface{}, error) {
		return nil, nil
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		task := dispatch.NewTask(fn, nil, nil, nil)
		if _, err := d.Submit(task, 0); err != nil {
			b.Fatal(err)
		}
		if _, err := task.Result(time.Minute); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSubmitAsync(b *testing.B) {
	d := startDispatcher(b, 4)
	fn := dispatch.AsyncFunc(func(context.Context, []interface{}, map[string]interface{}) (interface{}, error) {
		return nil, nil
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		task := dispatch.NewTask(fn, nil, nil, nil)
		if _, err := d.Submit(task, 0); err != nil {
			b.Fatal(err)
		}
		if _, err := task.Result(time.Minute); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSubmitParallel(b *testing.B) {
	d := startDispatcher(b, 8)
	fn := dispatch.Func(func(context.Context, []interface{}, map[string]interface{}) (interface{}, error) {
		return nil, nil
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			task := dispatch.NewTask(fn, nil, nil, nil)
			if _, err := d.Submit(task, 0); err != nil {
				b.Fatal(err)
			}
			if _, err := task.Result(time.Minute); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkSubmitUnbounded(b *testing.B) {
	d := startDispatcher(b, 4)
	fn := dispatch.Func(func(context.Context, []interface{}, map[string]interface{}) (interface{}, error) {
		return nil, nil
	})

	tasks := make([]*dispatch.Task, 0, b.N)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		task := dispatch.NewTask(fn, nil, nil, nil)
		if _, err := d.Submit(task, dispatch.Unbounded); err != nil {
			b.Fatal(err)
		}
		tasks = append(tasks, task)
	}
	for _, task := range tasks {
		if _, err := task.Result(time.Minute); err != nil {
			b.Fatal(err)
		}
	}
}
