package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/walpredict/stock-optimizer/internal/logger"
	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/utils"
)

// APIError is a non successful response of the REST server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("optimizer returned %d: %s", e.StatusCode, e.Message)
}

// true if the server rejected the request as invalid
func IsBadRequest(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

// get optimizer allocation by sending POST to REST server
func (c *Client) Optimize(ctx context.Context, predictions map[string]float64, totalStock int,
	spec *config.OptimizerSpec) (map[string]int, error) {
	stock := float64(totalStock)
	req := &config.AllocationRequest{
		Predictions: predictions,
		TotalStock:  &stock,
		Optimizer:   spec,
	}
	body, err := c.do(ctx, http.MethodPost, OptimizeVerb, req)
	if err != nil {
		return nil, err
	}
	resp, err := utils.FromDataToSpec(body, config.AllocationResponse{})
	if err != nil {
		return nil, err
	}
	return resp.Allocation, nil
}

// get allocations for several independent requests
func (c *Client) OptimizeBatch(ctx context.Context, reqs []config.AllocationRequest) ([]config.BatchItem, error) {
	body, err := c.do(ctx, http.MethodPost, OptimizeBatchVerb, &config.BatchRequest{Requests: reqs})
	if err != nil {
		return nil, err
	}
	resp, err := utils.FromDataToSpec(body, config.BatchResponse{})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// get the optimizer spec of the REST server
func (c *Client) GetOptimizer(ctx context.Context) (*config.OptimizerSpec, error) {
	body, err := c.do(ctx, http.MethodGet, OptimizerVerb, nil)
	if err != nil {
		return nil, err
	}
	d, err := utils.FromDataToSpec(body, config.OptimizerData{})
	if err != nil {
		return nil, err
	}
	return &d.Spec, nil
}

// send a request, retrying on connection errors and unavailable responses
func (c *Client) do(ctx context.Context, method, verb string, payload any) ([]byte, error) {
	var byteValue []byte
	if payload != nil {
		var err error
		if byteValue, err = json.Marshal(payload); err != nil {
			return nil, err
		}
	}
	endPoint := c.baseURL + "/" + verb

	var body []byte
	var lastErr error
	err := wait.ExponentialBackoffWithContext(ctx, c.backoff, func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, method, endPoint, bytes.NewReader(byteValue))
		if err != nil {
			return false, err
		}
		if payload != nil {
			req.Header.Add("Content-Type", "application/json")
		}
		res, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logger.Log.Debugw("optimizer call failed, retrying", "endpoint", endPoint, "error", err)
			return false, nil
		}
		defer res.Body.Close()
		data, err := io.ReadAll(res.Body)
		if err != nil {
			lastErr = err
			return false, nil
		}
		switch {
		case res.StatusCode == http.StatusOK:
			body = data
			return true, nil
		case res.StatusCode == http.StatusServiceUnavailable:
			lastErr = apiError(res.StatusCode, data)
			logger.Log.Debugw("optimizer unavailable, retrying", "endpoint", endPoint)
			return false, nil
		default:
			return false, apiError(res.StatusCode, data)
		}
	})
	if err != nil {
		if wait.Interrupted(err) && lastErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, endPoint, lastErr)
		}
		return nil, err
	}
	return body, nil
}

func apiError(status int, data []byte) *APIError {
	var resp config.ErrorResponse
	if err := json.Unmarshal(data, &resp); err == nil && resp.Error != "" {
		return &APIError{StatusCode: status, Message: resp.Error}
	}
	return &APIError{StatusCode: status, Message: http.StatusText(status)}
}
