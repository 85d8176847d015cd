package dispatch

// Descriptor is the plain-data shape accepted by MakeTask: a callable
// plus optional arguments and completion callback.
type Descriptor struct {
	// Func is the callable, a Func or AsyncFunc. Required.
	Func interface{}

	// Args holds positional arguments. A []interface{} is used as-is;
	// any other non-nil value is wrapped into a single-element slice.
	Args interface{}

	// Kwargs holds keyword arguments. Nil defaults to an empty map.
	Kwargs map[string]interface{}

	// Callback, if set, fires exactly once when the task completes.
	Callback Callback
}

// MakeTask normalizes a Descriptor or passes an existing *Task through
// unchanged. Panics if v is neither, or if the descriptor's callable is
// missing or of an unsupported type.
func MakeTask(v interface{}) *Task {
	switch task := v.(type) {
	case *Task:
		return task
	case Descriptor:
		return makeFromDescriptor(task)
	case *Descriptor:
		return makeFromDescriptor(*task)
	default:
		panic("dispatch: MakeTask wants a *Task or a Descriptor")
	}
}

func makeFromDescriptor(desc Descriptor) *Task {
	if desc.Func == nil {
		panic("dispatch: descriptor has no callable")
	}

	var args []interface{}
	switch a := desc.Args.(type) {
	case nil:
		args = []interface{}{}
	case []interface{}:
		args = a
	default:
		args = []interface{}{a}
	}

	kwargs := desc.Kwargs
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}

	return NewTask(desc.Func, args, kwargs, desc.Callback)
}
