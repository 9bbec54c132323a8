package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// warmWorkers bounds concurrent chart builds while warming the cache.
	warmWorkers = 4
)
