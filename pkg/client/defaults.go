package client

import (
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	// environment variables names
	OptimizerURLEnvName = "STOCK_OPTIMIZER_URL"

	// API settings
	OptimizeVerb      = "optimize-stock"
	OptimizeBatchVerb = "optimize-stock/batch"
	OptimizerVerb     = "optimizer"

	// others
	DefaultRequestTimeout = 30 * time.Second
)

// backoff of retried calls: 200ms, 400ms, 800ms, 1.6s
var DefaultBackoff = wait.Backoff{
	Duration: 200 * time.Millisecond,
	Factor:   2.0,
	Jitter:   0.1,
	Steps:    5,
}
