package executor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/metrics"
)

// Invoker wraps every executor call so a failing executor degrades the
// conversation instead of aborting it. Raw returns the empty string on any
// failure; Typed reports failure through its bool. Flows branch on those
// sentinels to pick fallback routes and canned replies.
type Invoker struct {
	registry Registry
	logger   *zap.Logger
}

// NewInvoker builds an Invoker over a registry of executors.
func NewInvoker(registry Registry, logger *zap.Logger) *Invoker {
	return &Invoker{registry: registry, logger: logger}
}

// Raw runs the named executor and returns its raw text output, or "" if the
// executor is unknown, errors, or returns nothing.
func (i *Invoker) Raw(ctx context.Context, name string, payload map[string]interface{}) string {
	result := i.run(ctx, name, payload)
	if result == nil {
		return ""
	}
	return result.Raw
}

// Typed runs the named executor and decodes its structured output into out.
// It returns false if the run failed, produced no structured output, or the
// output did not decode.
func (i *Invoker) Typed(ctx context.Context, name string, payload map[string]interface{}, out interface{}) bool {
	result := i.run(ctx, name, payload)
	if result == nil {
		return false
	}
	if len(result.Structured) == 0 {
		i.logger.Error("Executor returned no structured output",
			zap.String("executor", name))
		metrics.ExecutorFailures.WithLabelValues(name).Inc()
		return false
	}
	if err := json.Unmarshal(result.Structured, out); err != nil {
		i.logger.Error("Executor output did not match expected schema",
			zap.String("executor", name),
			zap.Error(err))
		metrics.ExecutorFailures.WithLabelValues(name).Inc()
		return false
	}
	return true
}

func (i *Invoker) run(ctx context.Context, name string, payload map[string]interface{}) *Result {
	exec := i.registry.Executor(name)
	if exec == nil {
		i.logger.Error("Unknown executor", zap.String("executor", name))
		metrics.ExecutorFailures.WithLabelValues(name).Inc()
		return nil
	}

	i.logger.Info("Invoking executor",
		zap.String("executor", name),
		zap.Int("payload_fields", len(payload)))
	metrics.ExecutorInvocations.WithLabelValues(name).Inc()

	start := time.Now()
	result, err := exec.Run(ctx, payload)
	metrics.ExecutorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		i.logger.Error("Executor failed",
			zap.String("executor", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		metrics.ExecutorFailures.WithLabelValues(name).Inc()
		return nil
	}
	return result
}
