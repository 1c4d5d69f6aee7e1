package model

import "time"

// Agent names used as AnalysisReport keys and inference request types.
const (
	AgentBehavioral  = "behavioral"
	AgentWellness    = "wellness"
	AgentCoaching    = "coaching"
	AgentCorrelation = "correlation"
)

// AnalysisResult is the structured output of one analyzer agent.
// A failed agent contributes no result at all, never a partial one.
type AnalysisResult struct {
	Insights   []string `json:"insights"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`
}

// AnalysisReport collects the settled results of one orchestration run.
// Failed or skipped agents are simply absent from Results.
type AnalysisReport struct {
	Results     map[string]*AnalysisResult
	GeneratedAt time.Time
}

// EmptyReport is the zero-confidence report returned on total failure.
func EmptyReport(now time.Time) *AnalysisReport {
	return &AnalysisReport{
		Results:     map[string]*AnalysisResult{},
		GeneratedAt: now,
	}
}

// Get returns the result for an agent, or nil when it failed or never ran.
func (r *AnalysisReport) Get(agent string) *AnalysisResult {
	if r == nil {
		return nil
	}
	return r.Results[agent]
}

// Confidence averages the confidence of the agents that produced output.
func (r *AnalysisReport) Confidence() float64 {
	if r == nil || len(r.Results) == 0 {
		return 0
	}
	var sum float64
	var n int
	for _, res := range r.Results {
		if res == nil {
			continue
		}
		sum += res.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
