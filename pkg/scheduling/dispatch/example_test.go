package dispatch

import (
	"context"
	"fmt"
	"time"
)

// Example demonstrates basic task submission.
func Example() {
	d := New(Config{MaxWorkers: 2})
	if err := d.Start(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer d.Stop()

	task := MakeTask(Descriptor{
		Func: Func(func(_ context.Context, args []interface{}, _ map[string]interface{}) (interface{}, error) {
			return args[0].(int) * 2, nil
		}),
		Args: 21,
	})

	if _, err := d.Submit(task, 0); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	result, err := task.Result(time.Second)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Result: %v\n", result)

	// Output:
	// Result: 42
}

// Example_async demonstrates a cooperative task on the shared run loop.
func Example_async() {
	d := New(Config{MaxWorkers: 2})
	if err := d.Start(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer d.Stop()

	task := MakeTask(Descriptor{
		Func: AsyncFunc(func(_ context.Context, _ []interface{}, kwargs map[string]interface{}) (interface{}, error) {
			return fmt.Sprintf("hello, %s", kwargs["name"]), nil
		}),
		Kwargs: map[string]interface{}{"name": "world"},
	})

	if _, err := d.Submit(task, 0); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	result, err := task.Result(time.Second)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(result)

	// Output:
	// hello, world
}

// Example_callback demonstrates completion callbacks.
func Example_callback() {
	d := New(Config{MaxWorkers: 1})
	if err := d.Start(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer d.Stop()

	done := make(chan struct{})
	task := NewTask(
		Func(func(context.Context, []interface{}, map[string]interface{}) (interface{}, error) {
			return "payload", nil
		}),
		nil, nil,
		func(t *Task) {
			fmt.Printf("Finished in state %s\n", t.State())
			close(done)
		},
	)

	if _, err := d.Submit(task, 0); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	<-done

	// Output:
	// Finished in state done
}
