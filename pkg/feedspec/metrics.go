package feedspec

import (
	"time"

	"github.com/bitechdev/FeedSpec/pkg/metrics"
)

// recordFeedOp records duration and outcome of one batched operation.
func recordFeedOp(provider, op string, started time.Time, err error) {
	if mp := metrics.GetProvider(); mp != nil {
		mp.RecordFeedOp(provider, op, time.Since(started), err)
	}
}

// recordBatchDispatch records the fan-out shape of a batched call.
func recordBatchDispatch(provider, op string, users, groups int) {
	if mp := metrics.GetProvider(); mp != nil {
		mp.RecordBatchDispatch(provider, op, users, groups)
	}
}

// recordUserError records a per-user captured error by kind.
func recordUserError(provider, op string, kind ErrorKind) {
	if mp := metrics.GetProvider(); mp != nil {
		mp.RecordUserError(provider, op, string(kind))
	}
}
