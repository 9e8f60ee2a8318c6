package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/walpredict/stock-optimizer/internal/metrics"
	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/core"
	"github.com/walpredict/stock-optimizer/pkg/manager"
)

func do(h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

var _ = Describe("REST server", func() {
	var (
		handler http.Handler
		mgr     *manager.Manager
	)

	BeforeEach(func() {
		registry := prometheus.NewRegistry()
		mgr = manager.NewManager(nil, metrics.InitMetricsAndEmitter(registry))
		handler = NewStateLessServer(mgr, registry, ServerOptions{}).Handler()
	})

	Context("When checking the service", func() {
		It("should answer the banner", func() {
			w := do(handler, http.MethodGet, "/", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal(BannerMessage))
		})

		It("should report health", func() {
			w := do(handler, http.MethodGet, HealthPath, "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"ok"`))
		})

		It("should return the optimizer spec", func() {
			w := do(handler, http.MethodGet, OptimizerPath, "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			var data config.OptimizerData
			Expect(json.Unmarshal(w.Body.Bytes(), &data)).To(Succeed())
			Expect(data.Spec.Strategy).To(Equal(config.StrategyAuto))
		})
	})

	Context("When optimizing stock", func() {
		It("should allocate proportionally", func() {
			w := do(handler, http.MethodPost, OptimizePath,
				`{"predictions": {"North": 50, "South": 30, "East": 20}, "total_stock": 100}`, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			var resp config.AllocationResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Allocation).To(Equal(map[string]int{"North": 50, "South": 30, "East": 20}))
		})

		It("should accept a per request optimizer override", func() {
			w := do(handler, http.MethodPost, OptimizePath,
				`{"predictions": {"A": 10, "B": 10}, "total_stock": 7, "optimizer": {"strategy": "greedy"}}`, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			var resp config.AllocationResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Allocation).To(Equal(map[string]int{"A": 4, "B": 3}))
		})

		DescribeTable("should reject bad requests",
			func(body string, wantError string) {
				w := do(handler, http.MethodPost, OptimizePath, body, nil)
				Expect(w.Code).To(Equal(http.StatusBadRequest))
				var resp config.ErrorResponse
				Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Error).To(ContainSubstring(wantError))
			},
			Entry("missing predictions", `{"total_stock": 10}`, MissingInputMessage),
			Entry("missing total stock", `{"predictions": {"A": 1}}`, MissingInputMessage),
			Entry("malformed json", `{"predictions": `, "malformed request"),
			Entry("empty predictions", `{"predictions": {}, "total_stock": 10}`, "predictions"),
			Entry("negative demand", `{"predictions": {"A": -1}, "total_stock": 10}`, "non-negative"),
			Entry("negative stock", `{"predictions": {"A": 1}, "total_stock": -3}`, "total_stock"),
			Entry("fractional stock", `{"predictions": {"A": 1}, "total_stock": 2.5}`, "integer"),
			Entry("unknown strategy", `{"predictions": {"A": 1}, "total_stock": 2, "optimizer": {"strategy": "x"}}`,
				"unknown optimizer strategy"),
		)

		It("should echo the request id", func() {
			w := do(handler, http.MethodPost, OptimizePath, `{"predictions": {"R": 5}, "total_stock": 10}`,
				http.Header{RequestIDHeader: []string{"abc-123"}})
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get(RequestIDHeader)).To(Equal("abc-123"))
		})

		It("should generate a request id", func() {
			w := do(handler, http.MethodGet, HealthPath, "", nil)
			Expect(w.Header().Get(RequestIDHeader)).NotTo(BeEmpty())
		})
	})

	Context("When optimizing a batch", func() {
		It("should report per item results", func() {
			w := do(handler, http.MethodPost, OptimizeBatchPath, `{"requests": [
				{"predictions": {"R": 5}, "total_stock": 10},
				{"predictions": {"A": -1}, "total_stock": 10}
			]}`, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			var resp config.BatchResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Results).To(HaveLen(2))
			Expect(resp.Results[0].Allocation).To(Equal(map[string]int{"R": 10}))
			Expect(resp.Results[1].Index).To(Equal(1))
			Expect(resp.Results[1].Error).To(ContainSubstring("invalid input"))
		})

		It("should reject an empty batch", func() {
			w := do(handler, http.MethodPost, OptimizeBatchPath, `{"requests": []}`, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("When serving browsers", func() {
		It("should allow the configured origin with credentials", func() {
			w := do(handler, http.MethodOptions, OptimizePath, "", http.Header{
				"Origin":                        []string{"http://localhost:3000"},
				"Access-Control-Request-Method": []string{http.MethodPost},
			})
			Expect(w.Code).To(BeNumerically("<", 300))
			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:3000"))
			Expect(w.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
		})
	})

	Context("When scraping metrics", func() {
		It("should expose allocation counters", func() {
			do(handler, http.MethodPost, OptimizePath, `{"predictions": {"R": 5}, "total_stock": 10}`, nil)
			w := do(handler, http.MethodGet, MetricsPath, "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("stock_optimizer_allocations_total"))
		})
	})

	Context("When running statefull", func() {
		It("should replace the optimizer spec", func() {
			handler = NewStateFullServer(mgr, nil, ServerOptions{}).Handler()
			w := do(handler, http.MethodPost, OptimizerPath, `{"spec": {"strategy": "greedy"}}`, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(mgr.Optimizer().Spec().Strategy).To(Equal(config.StrategyGreedy))

			w = do(handler, http.MethodPost, OptimizerPath, `{"spec": {"strategy": "bogus"}}`, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(mgr.Optimizer().Spec().Strategy).To(Equal(config.StrategyGreedy))
		})
	})

	DescribeTable("mapping allocation errors to HTTP status",
		func(err error, status int) {
			Expect(statusFor(err)).To(Equal(status))
		},
		Entry("invalid input", core.NewInvalidInputError(nil), http.StatusBadRequest),
		Entry("solver time limit", core.NewSolverError(config.StrategyMILP, core.StatusTimeLimit, context.DeadlineExceeded),
			http.StatusInternalServerError),
		Entry("request canceled", context.Canceled, http.StatusServiceUnavailable),
		Entry("other", errors.New("boom"), http.StatusInternalServerError),
	)
})
