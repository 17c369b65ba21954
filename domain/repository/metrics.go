package repository

import "time"

// IMetrics is the narrow counter sink consumed by the pipeline and handlers.
// Implementations must never block or fail the request path.
type IMetrics interface {
	IncRequest(mode string)
	IncError(mode, kind string)
	IncCacheHit(tier string)
	IncCacheMiss(tier string)
	IncCacheOp(op string, ok bool)
	ObserveLatency(mode string, d time.Duration)
}
