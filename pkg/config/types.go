package config

// Data related to Optimizer
type OptimizerData struct {
	Spec OptimizerSpec `json:"spec" yaml:"spec"`
}

// Specifications for optimizer data
type OptimizerSpec struct {
	Strategy             string  `json:"strategy" yaml:"strategy"`                         // solve strategy (auto, milp, or greedy)
	TimeLimitMsec        int64   `json:"timeLimitMsec" yaml:"timeLimitMsec"`               // solve time budget, zero means default
	MaxNodes             int     `json:"maxNodes" yaml:"maxNodes"`                         // branch and bound node limit, zero means default
	MaxModelRows         int     `json:"maxModelRows" yaml:"maxModelRows"`                 // largest MILP model accepted, zero means default
	MILPRegionLimit      int     `json:"milpRegionLimit" yaml:"milpRegionLimit"`           // auto strategy uses MILP up to this many regions
	Tolerance            float64 `json:"tolerance" yaml:"tolerance"`                       // simplex reduced cost tolerance
	IntegralityTolerance float64 `json:"integralityTolerance" yaml:"integralityTolerance"` // distance to an integer accepted as integral
	AcceptIncumbent      bool    `json:"acceptIncumbent" yaml:"acceptIncumbent"`           // at a time or node limit, return the best allocation found instead of failing
}

// Request to allocate a stock over regions
type AllocationRequest struct {
	Predictions map[string]float64 `json:"predictions"`         // predicted demand per region
	TotalStock  *float64           `json:"total_stock"`         // units to distribute, must be integral
	Optimizer   *OptimizerSpec     `json:"optimizer,omitempty"` // per request optimizer override
}

// Allocation returned for a request
type AllocationResponse struct {
	Allocation map[string]int `json:"allocation"` // units per region
}

// Several independent allocation requests
type BatchRequest struct {
	Requests []AllocationRequest `json:"requests"`
}

// Result of one item of a batch request; exactly one of Allocation and Error is set
type BatchItem struct {
	Index      int            `json:"index"`
	Allocation map[string]int `json:"allocation,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Results of a batch request, in request order
type BatchResponse struct {
	Results []BatchItem `json:"results"`
}

// Error body returned by the REST server
type ErrorResponse struct {
	Error string `json:"error"`
}
