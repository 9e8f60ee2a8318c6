package rest

/**
 * Environment variables
 */

// REST server env names
const RestHostEnvName = "STOCK_OPTIMIZER_HOST"
const RestPortEnvName = "STOCK_OPTIMIZER_PORT"

/**
 * Parameters
 */

// default listen address
const DefaultRestHost = "0.0.0.0"
const DefaultRestPort = "5000"

// origins allowed to call the API from a browser, with credentials
var DefaultAllowedOrigins = []string{"http://localhost:3000"}

// request id header, echoed back on every response
const RequestIDHeader = "X-Request-ID"

// API paths
const (
	OptimizePath      = "/optimize-stock"
	OptimizeBatchPath = "/optimize-stock/batch"
	OptimizerPath     = "/optimizer"
	HealthPath        = "/healthz"
	MetricsPath       = "/metrics"
)

// response messages
const (
	BannerMessage       = "WalPredict API Running!"
	MissingInputMessage = "Missing predictions or total_stock"
)
