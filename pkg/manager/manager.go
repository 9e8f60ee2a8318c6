package manager

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/walpredict/stock-optimizer/internal/logger"
	"github.com/walpredict/stock-optimizer/internal/metrics"
	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/core"
	"github.com/walpredict/stock-optimizer/pkg/solver"
)

type requestIDKey struct{}

// Attach a request id to the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Request id carried by the context, or a new one
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Manager runs allocation requests against an optimizer, recording logs and metrics
type Manager struct {
	mu        sync.RWMutex
	optimizer *solver.Optimizer
	emitter   *metrics.MetricsEmitter

	// maximum number of batch items solved concurrently
	concurrency int
}

func NewManager(optimizer *solver.Optimizer, emitter *metrics.MetricsEmitter) *Manager {
	if optimizer == nil {
		optimizer = solver.NewOptimizer(nil)
	}
	if emitter == nil {
		emitter = metrics.NewMetricsEmitter()
	}
	return &Manager{
		optimizer:   optimizer,
		emitter:     emitter,
		concurrency: runtime.GOMAXPROCS(0),
	}
}

func (m *Manager) Optimizer() *solver.Optimizer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.optimizer
}

// Replace the optimizer used by later requests; requests in flight keep the old one
func (m *Manager) SetOptimizer(optimizer *solver.Optimizer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optimizer = optimizer
}

// Set the number of batch items solved concurrently
func (m *Manager) SetConcurrency(n int) {
	if n > 0 {
		m.concurrency = n
	}
}

// Allocate stock for one request
func (m *Manager) Optimize(ctx context.Context, demand core.DemandMap, totalStock int,
	override *config.OptimizerSpec) (*solver.Result, error) {
	requestID := RequestIDFrom(ctx)
	log := logger.Log.With("requestID", requestID)
	optimizer := m.Optimizer()
	strategy := optimizer.Spec().Merge(override).Strategy

	result, err := optimizer.OptimizeWith(ctx, demand, totalStock, override)
	if err != nil {
		outcome := metrics.OutcomeError
		var solverErr *core.SolverError
		switch {
		case core.IsInvalidInput(err):
			outcome = metrics.OutcomeInvalidInput
			log.Infow("rejected allocation request", "regions", len(demand), "totalStock", totalStock, "error", err)
		case errors.As(err, &solverErr):
			outcome = metrics.OutcomeSolverError
			strategy = solverErr.Strategy
			log.Errorw("allocation failed", "strategy", strategy, "status", solverErr.Status, "error", err)
		default:
			log.Errorw("allocation failed", "strategy", strategy, "error", err)
		}
		m.emitter.EmitErrorMetrics(ctx, strategy, outcome)
		return nil, err
	}

	if !result.Optimal {
		log.Warnw("allocation search stopped at a limit, returning best found",
			"strategy", result.Strategy, "nodes", result.NumNodes)
	}
	log.Debugw("allocated stock", "regions", len(demand), "totalStock", totalStock,
		"strategy", result.Strategy, "objective", result.Objective, "nodes", result.NumNodes,
		"durationMsec", result.Duration.Milliseconds())
	m.emitter.EmitAllocationMetrics(ctx, result.Strategy, result.Duration, result.NumNodes, result.Objective)
	return result, nil
}

// Allocate stock for a request in its wire form
func (m *Manager) OptimizeRequest(ctx context.Context, req *config.AllocationRequest) (*solver.Result, error) {
	demand, totalStock, err := FromRequest(req)
	if err != nil {
		m.emitter.EmitErrorMetrics(ctx, m.Optimizer().Spec().Merge(req.Optimizer).Strategy, metrics.OutcomeInvalidInput)
		return nil, err
	}
	return m.Optimize(ctx, demand, totalStock, req.Optimizer)
}

// Solve all requests of a batch concurrently; a failed item does not fail the batch
func (m *Manager) OptimizeBatch(ctx context.Context, reqs []config.AllocationRequest) []config.BatchItem {
	batchID := RequestIDFrom(ctx)
	items := make([]config.BatchItem, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i := range reqs {
		g.Go(func() error {
			itemCtx := WithRequestID(gctx, batchID+"-"+uuid.NewString()[:8])
			items[i].Index = i
			result, err := m.OptimizeRequest(itemCtx, &reqs[i])
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Allocation = result.Allocation
			return nil
		})
	}
	_ = g.Wait()

	logger.Log.Infow("solved allocation batch", "requestID", batchID, "items", len(reqs))
	return items
}

// Convert a wire request to demand and an integer stock
func FromRequest(req *config.AllocationRequest) (core.DemandMap, int, error) {
	var allErrs field.ErrorList
	if req.Predictions == nil {
		allErrs = append(allErrs, field.Required(field.NewPath("predictions"), ""))
	}
	if req.TotalStock == nil {
		allErrs = append(allErrs, field.Required(field.NewPath("total_stock"), ""))
	}
	if len(allErrs) > 0 {
		return nil, 0, core.NewInvalidInputError(allErrs)
	}
	totalStock, err := core.StockFromFloat(*req.TotalStock)
	if err != nil {
		return nil, 0, err
	}
	return core.DemandMap(req.Predictions), totalStock, nil
}
