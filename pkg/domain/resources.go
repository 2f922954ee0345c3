package domain

import "time"

// ResourceType identifies a budgeted resource dimension.
type ResourceType string

const (
	ResourceCPU     ResourceType = "cpu"
	ResourceMemory  ResourceType = "memory"
	ResourceNetwork ResourceType = "network"
	ResourceTokens  ResourceType = "tokens"
)

// AllocationStatus is the state of a resource allocation.
type AllocationStatus string

const (
	AllocationActive   AllocationStatus = "active"
	AllocationReleased AllocationStatus = "released"
)

// ResourceAllocation is a per-execution reservation against the
// process-wide resource budget. It is created at execution start and
// released deterministically on every exit path.
type ResourceAllocation struct {
	ExecutionID        string                   `json:"execution_id"`
	AllocatedResources map[ResourceType]float64 `json:"allocated_resources"`
	Status             AllocationStatus         `json:"status"`
	CreatedAt          time.Time                `json:"created_at"`
	ReleasedAt         *time.Time               `json:"released_at,omitempty"`
}

// ResourcePrediction is an ephemeral estimate of what a node list will
// consume, derived from the per-type base cost model.
type ResourcePrediction struct {
	EstimatedMemoryMB        float64                  `json:"estimated_memory_mb"`
	EstimatedCPUPercent      float64                  `json:"estimated_cpu_percent"`
	EstimatedDurationSeconds float64                  `json:"estimated_duration_seconds"`
	EstimatedTokens          int                      `json:"estimated_tokens"`
	ConfidenceScore          float64                  `json:"confidence_score"`
	ResourceRequirements     map[ResourceType]float64 `json:"resource_requirements"`
}

// CostAnalysis is an ephemeral per-run cost estimate. LLM nodes are
// additionally priced per token.
type CostAnalysis struct {
	EstimatedCost       float64            `json:"estimated_cost"`
	CostBreakdown       map[string]float64 `json:"cost_breakdown"`
	OptimizationSavings float64            `json:"optimization_savings"`
	CostPerNode         map[string]float64 `json:"cost_per_node"`
}
