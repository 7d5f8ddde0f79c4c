package hooks

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Executor runs the callbacks of a registry for one phase
type Executor[T any] struct {
	asyncQueue *AsyncQueue
	logger     *zap.Logger
}

// NewExecutor creates a new hook executor. asyncQueue may be nil, in which
// case async hooks run inline.
func NewExecutor[T any](asyncQueue *AsyncQueue, logger *zap.Logger) *Executor[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor[T]{asyncQueue: asyncQueue, logger: logger}
}

// Run executes the callbacks for phase in order, threading args through them,
// and returns the final args. The first failing callback aborts the chain.
func (e *Executor[T]) Run(
	ctx context.Context,
	registry *Registry[T],
	phase Phase,
	target T,
	args []interface{},
) ([]interface{}, error) {
	if registry == nil {
		return args, nil
	}

	for _, hook := range registry.Hooks(phase) {
		if hook.Async && phase.IsAfter() && e.asyncQueue != nil {
			if err := e.enqueueAsyncHook(hook, target, args); err != nil {
				e.logger.Warn("failed to enqueue async hook",
					zap.String("hook", hook.Name),
					zap.Error(err),
				)
			}
			continue
		}

		out, err := hook.Fn(ctx, target, args)
		if err != nil {
			return args, fmt.Errorf("hook %s failed: %w", phase, err)
		}
		if out != nil {
			args = out
		}
	}

	return args, nil
}

func (e *Executor[T]) enqueueAsyncHook(hook *Hook[T], target T, args []interface{}) error {
	argsCopy := deepCopyArgs(args)
	if s, ok := any(target).(Snapshotter[T]); ok {
		target = s.Snapshot()
	}

	return e.asyncQueue.Enqueue(AsyncTask{
		Name: hook.Name,
		Fn: func(ctx context.Context) error {
			if _, err := hook.Fn(ctx, target, argsCopy); err != nil {
				e.logger.Error("async hook failed",
					zap.String("hook", hook.Name),
					zap.String("phase", hook.Phase.String()),
					zap.Error(err),
				)
				return err
			}
			return nil
		},
	})
}

// deepCopyArgs isolates async hooks from later mutation of maps and slices
func deepCopyArgs(args []interface{}) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = deepCopyValue(a)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, item := range val {
			m[k] = deepCopyValue(item)
		}
		return m
	case []interface{}:
		return deepCopyArgs(val)
	case []string:
		s := make([]string, len(val))
		copy(s, val)
		return s
	default:
		return v
	}
}
