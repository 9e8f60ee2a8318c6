package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/core"
	"github.com/walpredict/stock-optimizer/pkg/manager"
	"github.com/walpredict/stock-optimizer/pkg/solver"
)

// Handlers for REST API calls
type handlers struct {
	manager *manager.Manager
}

func errorResponse(c *gin.Context, status int, err string) {
	c.IndentedJSON(status, config.ErrorResponse{Error: err})
}

// HTTP status for an allocation error
func statusFor(err error) int {
	switch {
	case core.IsInvalidInput(err):
		return http.StatusBadRequest
	case core.IsSolverError(err):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) banner(c *gin.Context) {
	c.String(http.StatusOK, BannerMessage)
}

func (h *handlers) health(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) optimize(c *gin.Context) {
	var req config.AllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	if req.Predictions == nil || req.TotalStock == nil {
		errorResponse(c, http.StatusBadRequest, MissingInputMessage)
		return
	}
	if req.Optimizer != nil {
		if err := h.manager.Optimizer().Spec().Merge(req.Optimizer).Validate(); err != nil {
			errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	result, err := h.manager.OptimizeRequest(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, statusFor(err), err.Error())
		return
	}
	c.IndentedJSON(http.StatusOK, config.AllocationResponse{Allocation: result.Allocation})
}

func (h *handlers) optimizeBatch(c *gin.Context) {
	var req config.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	if len(req.Requests) == 0 {
		errorResponse(c, http.StatusBadRequest, "batch has no requests")
		return
	}
	items := h.manager.OptimizeBatch(c.Request.Context(), req.Requests)
	c.IndentedJSON(http.StatusOK, config.BatchResponse{Results: items})
}

func (h *handlers) getOptimizer(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, config.OptimizerData{Spec: *h.manager.Optimizer().Spec()})
}

func (h *handlers) setOptimizer(c *gin.Context) {
	var data config.OptimizerData
	if err := c.ShouldBindJSON(&data); err != nil {
		errorResponse(c, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	spec := data.Spec
	spec.SetDefaults()
	if err := spec.Validate(); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	h.manager.SetOptimizer(solver.NewOptimizer(&spec))
	c.IndentedJSON(http.StatusOK, config.OptimizerData{Spec: spec})
}
