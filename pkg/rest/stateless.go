package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/walpredict/stock-optimizer/pkg/manager"
)

// A stateless REST server: allocation calls plus read only GET calls
type StateLessServer struct {
	BaseServer
	handlers *handlers
}

// create a stateless REST server; metrics are served from gatherer if it is not nil
func NewStateLessServer(mgr *manager.Manager, gatherer prometheus.Gatherer, opts ServerOptions) *StateLessServer {
	server := &StateLessServer{
		BaseServer: *NewBaseServer(opts),
		handlers:   &handlers{manager: mgr},
	}

	server.router.GET("/", server.handlers.banner)
	server.router.GET(HealthPath, server.handlers.health)

	server.router.POST(OptimizePath, server.handlers.optimize)
	server.router.POST(OptimizeBatchPath, server.handlers.optimizeBatch)

	server.router.GET(OptimizerPath, server.handlers.getOptimizer)

	if gatherer != nil {
		server.router.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return server
}
