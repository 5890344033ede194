package constants

import "time"

const (
	BatchOutcomeCachePrefix = "batch_outcome" // CacheBuilder adds the colon
	LatestBatchCacheKey     = "latest"
	BatchOutcomeCacheExpiry = 24 * time.Hour
)
