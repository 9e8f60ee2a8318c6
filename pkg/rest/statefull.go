package rest

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/walpredict/stock-optimizer/pkg/manager"
)

// A statefull REST server: the stateless API plus a POST call replacing the
// optimizer spec used by later requests
type StateFullServer struct {
	StateLessServer
}

// create a statefull REST server
func NewStateFullServer(mgr *manager.Manager, gatherer prometheus.Gatherer, opts ServerOptions) *StateFullServer {
	server := &StateFullServer{
		StateLessServer: *NewStateLessServer(mgr, gatherer, opts),
	}

	server.router.POST(OptimizerPath, server.handlers.setOptimizer)

	return server
}
