package stages

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/podcast-agent/internal/llm"
	"github.com/jonathan/podcast-agent/internal/metrics"
	"github.com/jonathan/podcast-agent/internal/types"
)

// withRetry runs call and retries it once, immediately, when the first attempt
// fails at the connection level. Every other failure returns as-is, and the
// error of the second attempt propagates with its own classification.
func withRetry[T any](ctx context.Context, stage types.StageName, logger *slog.Logger, call func(context.Context) (T, error)) (T, error) {
	result, err := call(ctx)
	if err == nil {
		return result, nil
	}
	err = llm.Classify(err)
	if types.KindOf(err) != types.KindTransient || ctx.Err() != nil {
		return result, err
	}

	logger.Warn("transient failure, retrying once", "stage", stage, "err", err)
	metrics.TransientRetriesTotal.WithLabelValues(string(stage)).Inc()

	result, err = call(ctx)
	return result, llm.Classify(err)
}

// withTimeout bounds one remote request. A zero timeout leaves ctx as is.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
