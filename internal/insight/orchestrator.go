package insight

import (
	"context"
	"sync"
	"time"

	"lym-insights/internal/model"
	"lym-insights/pkg/metrics"

	"go.uber.org/zap"
)

// Orchestrator fans the analyzer agents out concurrently over one context
// and collects whatever settles. A minority of failing agents never aborts
// the run; a run already in flight is answered with the last completed
// report (cooperative single-flight, no preemptive cancellation).
type Orchestrator struct {
	analyzers    []Analyzer
	agentTimeout time.Duration
	logger       *zap.Logger

	mu        sync.Mutex
	analyzing bool
	last      *model.AnalysisReport
	lastDate  string
}

func NewOrchestrator(analyzers []Analyzer, agentTimeout time.Duration, logger *zap.Logger) *Orchestrator {
	if agentTimeout <= 0 {
		agentTimeout = 30 * time.Second
	}
	return &Orchestrator{
		analyzers:    analyzers,
		agentTimeout: agentTimeout,
		logger:       logger,
	}
}

// Analyze runs all agents over the context and returns the settled report.
// It never returns nil and never propagates agent errors.
func (o *Orchestrator) Analyze(ctx context.Context, uc *model.UserContext) *model.AnalysisReport {
	now := time.Now()

	o.mu.Lock()
	if o.analyzing {
		last := o.last
		o.mu.Unlock()
		o.logger.Info("Analysis already in flight, returning last report")
		if last != nil {
			return last
		}
		return model.EmptyReport(now)
	}
	o.analyzing = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.analyzing = false
		o.mu.Unlock()
	}()

	if uc == nil {
		report := model.EmptyReport(now)
		o.finish(report, now)
		return report
	}

	results := make([]*model.AnalysisResult, len(o.analyzers))

	// Fan-out: every agent is dispatched before any is joined.
	var wg sync.WaitGroup
	for i, analyzer := range o.analyzers {
		wg.Add(1)
		go func(slot int, a Analyzer) {
			defer wg.Done()
			results[slot] = o.runAgent(ctx, a, uc)
		}(i, analyzer)
	}

	// Fan-in barrier: proceed only once every agent has settled.
	wg.Wait()

	report := &model.AnalysisReport{
		Results:     make(map[string]*model.AnalysisResult, len(o.analyzers)),
		GeneratedAt: now,
	}
	for i, analyzer := range o.analyzers {
		if results[i] != nil {
			report.Results[analyzer.Name()] = results[i]
		}
	}

	o.finish(report, now)

	o.logger.Info("Analysis run completed",
		zap.Int("agents", len(o.analyzers)),
		zap.Int("settled", len(report.Results)),
		zap.Float64("confidence", report.Confidence()),
	)
	return report
}

// runAgent isolates one agent call: timeout, panic recovery, error capture.
// Any failure resolves the slot to nil.
func (o *Orchestrator) runAgent(ctx context.Context, a Analyzer, uc *model.UserContext) (result *model.AnalysisResult) {
	start := time.Now()
	status := "ok"

	defer func() {
		if r := recover(); r != nil {
			status = "failed"
			result = nil
			o.logger.Error("Agent panicked",
				zap.String("agent", a.Name()),
				zap.Any("panic", r),
			)
		}
		metrics.RecordAgentLatency(a.Name(), status, time.Since(start))
	}()

	agentCtx, cancel := context.WithTimeout(ctx, o.agentTimeout)
	defer cancel()

	res, err := a.Analyze(agentCtx, uc)
	if err != nil {
		if agentCtx.Err() != nil {
			status = "timeout"
		} else {
			status = "failed"
		}
		o.logger.Warn("Agent failed, excluding from aggregation",
			zap.String("agent", a.Name()),
			zap.Error(err),
		)
		return nil
	}
	if res == nil {
		status = "skipped"
	}
	return res
}

func (o *Orchestrator) finish(report *model.AnalysisReport, now time.Time) {
	o.mu.Lock()
	o.last = report
	o.lastDate = now.Format(model.DateFormat)
	o.mu.Unlock()
}

// LastReport returns the most recently completed report, or nil.
func (o *Orchestrator) LastReport() *model.AnalysisReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// RanToday reports whether a run has completed on the given calendar day.
func (o *Orchestrator) RanToday(now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastDate == now.Format(model.DateFormat)
}
