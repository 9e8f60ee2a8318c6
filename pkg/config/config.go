package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Create an optimizer spec with all defaults set
func NewDefaultOptimizerSpec() *OptimizerSpec {
	spec := &OptimizerSpec{}
	spec.SetDefaults()
	return spec
}

// Read an optimizer spec from a YAML (or JSON) file, either bare or wrapped in a "spec" field
func LoadOptimizerSpec(path string) (*OptimizerSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read optimizer spec %s: %w", path, err)
	}
	return ParseOptimizerSpec(data)
}

// Parse an optimizer spec from YAML (or JSON) bytes
func ParseOptimizerSpec(data []byte) (*OptimizerSpec, error) {
	var wrapped OptimizerData
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse optimizer spec: %w", err)
	}
	spec := wrapped.Spec
	if spec == (OptimizerSpec{}) {
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse optimizer spec: %w", err)
		}
	}
	spec.SetDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Fill unset fields with default values
func (s *OptimizerSpec) SetDefaults() {
	if s.Strategy == "" {
		s.Strategy = DefaultStrategy
	}
	if s.TimeLimitMsec == 0 {
		s.TimeLimitMsec = DefaultTimeLimit.Milliseconds()
	}
	if s.MaxNodes == 0 {
		s.MaxNodes = DefaultMaxNodes
	}
	if s.MaxModelRows == 0 {
		s.MaxModelRows = DefaultMaxModelRows
	}
	if s.MILPRegionLimit == 0 {
		s.MILPRegionLimit = DefaultMILPRegionLimit
	}
	if s.Tolerance == 0 {
		s.Tolerance = DefaultTolerance
	}
	if s.IntegralityTolerance == 0 {
		s.IntegralityTolerance = DefaultIntegralityTolerance
	}
}

// Check that the optimizer spec names a known strategy and sane limits
func (s *OptimizerSpec) Validate() error {
	switch s.Strategy {
	case StrategyAuto, StrategyMILP, StrategyGreedy:
	default:
		return fmt.Errorf("unknown optimizer strategy %q", s.Strategy)
	}
	if s.TimeLimitMsec < 0 {
		return fmt.Errorf("optimizer timeLimitMsec must be non-negative, got %d", s.TimeLimitMsec)
	}
	if s.MaxNodes < 0 || s.MaxModelRows < 0 || s.MILPRegionLimit < 0 {
		return fmt.Errorf("optimizer limits must be non-negative: maxNodes=%d, maxModelRows=%d, milpRegionLimit=%d",
			s.MaxNodes, s.MaxModelRows, s.MILPRegionLimit)
	}
	if s.Tolerance < 0 || s.IntegralityTolerance < 0 || s.IntegralityTolerance >= 0.5 {
		return fmt.Errorf("optimizer tolerances out of range: tolerance=%v, integralityTolerance=%v",
			s.Tolerance, s.IntegralityTolerance)
	}
	return nil
}

// Solve time budget as a duration
func (s *OptimizerSpec) TimeLimit() time.Duration {
	return time.Duration(s.TimeLimitMsec) * time.Millisecond
}

// Copy of the optimizer spec with the fields set in override replacing the
// receiver's. Limits of the override only apply when they are tighter than
// the receiver's, so a request can not raise the server's budget.
func (s *OptimizerSpec) Merge(override *OptimizerSpec) *OptimizerSpec {
	merged := *s
	if override == nil {
		return &merged
	}
	if override.Strategy != "" {
		merged.Strategy = override.Strategy
	}
	merged.TimeLimitMsec = tighter(merged.TimeLimitMsec, override.TimeLimitMsec)
	merged.MaxNodes = tighter(merged.MaxNodes, override.MaxNodes)
	merged.MaxModelRows = tighter(merged.MaxModelRows, override.MaxModelRows)
	merged.MILPRegionLimit = tighter(merged.MILPRegionLimit, override.MILPRegionLimit)
	if override.Tolerance != 0 {
		merged.Tolerance = override.Tolerance
	}
	if override.IntegralityTolerance != 0 {
		merged.IntegralityTolerance = override.IntegralityTolerance
	}
	if override.AcceptIncumbent {
		merged.AcceptIncumbent = true
	}
	return &merged
}

// the override limit if it is set and tighter than the base limit; zero
// means unset on both sides
func tighter[T int | int64](base, override T) T {
	if override != 0 && (base == 0 || override < base) {
		return override
	}
	return base
}
