package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"lym-insights/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAnalyzer struct {
	name string
	fn   func(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error)
}

func (s *stubAnalyzer) Name() string { return s.name }

func (s *stubAnalyzer) Analyze(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error) {
	return s.fn(ctx, uc)
}

func okAnalyzer(name, insight string) Analyzer {
	return &stubAnalyzer{name: name, fn: func(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error) {
		return &model.AnalysisResult{Insights: []string{insight}, Confidence: 0.8}, nil
	}}
}

func minimalContext() *model.UserContext {
	return &model.UserContext{
		Profile: *completeProfile(),
		Window:  trailingDates(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC), 7),
	}
}

func TestAnalyzeCollectsAllAgents(t *testing.T) {
	orch := NewOrchestrator([]Analyzer{
		okAnalyzer(model.AgentBehavioral, "b"),
		okAnalyzer(model.AgentWellness, "w"),
		okAnalyzer(model.AgentCoaching, "c"),
	}, time.Second, zap.NewNop())

	report := orch.Analyze(context.Background(), minimalContext())
	require.NotNil(t, report)
	assert.Len(t, report.Results, 3)
	require.NotNil(t, report.Get(model.AgentBehavioral))
	assert.Equal(t, []string{"b"}, report.Get(model.AgentBehavioral).Insights)
}

func TestAnalyzeIsolatesFailingAgent(t *testing.T) {
	failing := &stubAnalyzer{name: model.AgentWellness, fn: func(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error) {
		return nil, errors.New("provider down")
	}}
	orch := NewOrchestrator([]Analyzer{
		okAnalyzer(model.AgentBehavioral, "b"),
		failing,
		okAnalyzer(model.AgentCoaching, "c"),
	}, time.Second, zap.NewNop())

	report := orch.Analyze(context.Background(), minimalContext())
	require.NotNil(t, report)
	assert.Len(t, report.Results, 2)
	assert.Nil(t, report.Get(model.AgentWellness))
	assert.NotNil(t, report.Get(model.AgentBehavioral))
	assert.NotNil(t, report.Get(model.AgentCoaching))
}

func TestAnalyzeRecoversFromPanickingAgent(t *testing.T) {
	panicking := &stubAnalyzer{name: model.AgentCorrelation, fn: func(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error) {
		panic("index out of range")
	}}
	orch := NewOrchestrator([]Analyzer{
		okAnalyzer(model.AgentBehavioral, "b"),
		panicking,
	}, time.Second, zap.NewNop())

	report := orch.Analyze(context.Background(), minimalContext())
	require.NotNil(t, report)
	assert.Len(t, report.Results, 1)
	assert.NotNil(t, report.Get(model.AgentBehavioral))
}

func TestAnalyzeTimesOutSlowAgent(t *testing.T) {
	slow := &stubAnalyzer{name: model.AgentWellness, fn: func(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Second):
			return &model.AnalysisResult{Insights: []string{"too late"}}, nil
		}
	}}
	orch := NewOrchestrator([]Analyzer{
		okAnalyzer(model.AgentBehavioral, "b"),
		slow,
	}, 20*time.Millisecond, zap.NewNop())

	report := orch.Analyze(context.Background(), minimalContext())
	require.NotNil(t, report)
	assert.Len(t, report.Results, 1)
	assert.Nil(t, report.Get(model.AgentWellness))
}

func TestAnalyzeNeverNilEvenWhenEverythingFails(t *testing.T) {
	failing := func(name string) Analyzer {
		return &stubAnalyzer{name: name, fn: func(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error) {
			return nil, errors.New("down")
		}}
	}
	orch := NewOrchestrator([]Analyzer{
		failing(model.AgentBehavioral),
		failing(model.AgentWellness),
	}, time.Second, zap.NewNop())

	report := orch.Analyze(context.Background(), minimalContext())
	require.NotNil(t, report)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0.0, report.Confidence())
}

func TestAnalyzeNilContextYieldsEmptyReport(t *testing.T) {
	called := false
	agent := &stubAnalyzer{name: model.AgentBehavioral, fn: func(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error) {
		called = true
		return nil, nil
	}}
	orch := NewOrchestrator([]Analyzer{agent}, time.Second, zap.NewNop())

	report := orch.Analyze(context.Background(), nil)
	require.NotNil(t, report)
	assert.Empty(t, report.Results)
	assert.False(t, called, "agents must not run without a context snapshot")
}

func TestAnalyzeSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := &stubAnalyzer{name: model.AgentBehavioral, fn: func(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error) {
		close(started)
		<-release
		return &model.AnalysisResult{Insights: []string{"slow"}, Confidence: 0.5}, nil
	}}
	orch := NewOrchestrator([]Analyzer{blocking}, time.Minute, zap.NewNop())

	firstDone := make(chan *model.AnalysisReport, 1)
	go func() {
		firstDone <- orch.Analyze(context.Background(), minimalContext())
	}()

	<-started

	// A concurrent call must return immediately with the last report, which
	// at this point does not exist yet.
	second := orch.Analyze(context.Background(), minimalContext())
	require.NotNil(t, second)
	assert.Empty(t, second.Results)

	close(release)
	first := <-firstDone
	require.NotNil(t, first)
	assert.Len(t, first.Results, 1)

	assert.Same(t, first, orch.LastReport())
}

func TestRanToday(t *testing.T) {
	orch := NewOrchestrator([]Analyzer{okAnalyzer(model.AgentBehavioral, "b")}, time.Second, zap.NewNop())

	now := time.Now()
	assert.False(t, orch.RanToday(now))

	orch.Analyze(context.Background(), minimalContext())
	assert.True(t, orch.RanToday(now))
	assert.False(t, orch.RanToday(now.AddDate(0, 0, 1)))
}
