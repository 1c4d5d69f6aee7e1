package insight

import (
	"context"
	"testing"
	"time"

	"lym-insights/internal/kvstore"
	"lym-insights/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// zeroTargetProfile keeps the nutrition rules gated off so scheduler tests
// exercise the agent branch of the selection ladder.
func zeroTargetProfile() *model.Profile {
	return &model.Profile{UserID: 1, Weight: 80, Age: 35, Goal: "maintain"}
}

type schedulerFixture struct {
	scheduler  *Scheduler
	kv         kvstore.Store
	sources    *fakeSources
	agentCalls *int
}

func newSchedulerFixture(now time.Time) *schedulerFixture {
	kv := kvstore.NewMemory()
	sources := &fakeSources{profile: zeroTargetProfile()}

	agentCalls := 0
	agent := &stubAnalyzer{name: model.AgentBehavioral, fn: func(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error) {
		agentCalls++
		return &model.AnalysisResult{Insights: []string{"You log breakfast most consistently."}, Confidence: 0.8}, nil
	}}

	builder := newTestBuilder(sources)
	orch := NewOrchestrator([]Analyzer{agent}, time.Second, zap.NewNop())
	scheduler := NewScheduler(kv, builder, orch, zap.NewNop())
	scheduler.now = func() time.Time { return now }

	return &schedulerFixture{scheduler: scheduler, kv: kv, sources: sources, agentCalls: &agentCalls}
}

func TestTodayInsightRunsPipelineOncePerDay(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	fx := newSchedulerFixture(now)

	first := fx.scheduler.TodayInsight(context.Background(), 1)
	require.NotNil(t, first)
	assert.Equal(t, "Something we noticed this week", first.Title)
	assert.Equal(t, model.AgentBehavioral, first.Source)
	assert.Equal(t, 1, *fx.agentCalls)
	assert.Equal(t, 1, fx.sources.profileCalls)

	second := fx.scheduler.TodayInsight(context.Background(), 1)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, *fx.agentCalls, "a repeat call on the same day must not rerun the agents")
	assert.Equal(t, 1, fx.sources.profileCalls, "a repeat call must not rebuild the context")
}

func TestTodayInsightRegeneratesOnDayRollover(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	fx := newSchedulerFixture(now)

	fx.scheduler.TodayInsight(context.Background(), 1)
	assert.Equal(t, 1, *fx.agentCalls)

	fx.scheduler.now = func() time.Time { return now.AddDate(0, 0, 1) }
	fx.scheduler.TodayInsight(context.Background(), 1)
	assert.Equal(t, 2, *fx.agentCalls, "a new calendar day starts a fresh run")
}

func TestTodayInsightFallbackWithoutProfile(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	fx := newSchedulerFixture(now)
	fx.sources.profile = &model.Profile{UserID: 1} // incomplete

	got := fx.scheduler.TodayInsight(context.Background(), 1)
	require.NotNil(t, got)
	assert.Equal(t, "fallback", got.Source)
	assert.Equal(t, 0.3, got.Confidence)
	assert.Equal(t, 0, *fx.agentCalls, "the fallback-only path must not spend agent calls")
}

func TestTodayInsightIsPerUser(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	fx := newSchedulerFixture(now)

	fx.scheduler.TodayInsight(context.Background(), 1)
	fx.scheduler.TodayInsight(context.Background(), 2)
	assert.Equal(t, 2, *fx.agentCalls, "each user gets their own daily run")
}

func TestDayStateTransitions(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	fx := newSchedulerFixture(now)
	ctx := context.Background()

	assert.Equal(t, StateNotGenerated, fx.scheduler.State(ctx, 1))

	ins := fx.scheduler.TodayInsight(ctx, 1)
	assert.Equal(t, StateGenerated, fx.scheduler.State(ctx, 1))

	dispatcher := NewDispatcher(fx.kv, &fakeNotifier{}, nil, nil, zap.NewNop())
	dispatcher.now = fx.scheduler.now
	sent, err := dispatcher.Dispatch(ctx, 1, ins)
	require.NoError(t, err)
	require.True(t, sent)
	assert.Equal(t, StateNotified, fx.scheduler.State(ctx, 1))

	// The next day starts over.
	fx.scheduler.now = func() time.Time { return now.AddDate(0, 0, 1) }
	assert.Equal(t, StateNotGenerated, fx.scheduler.State(ctx, 1))
}

func TestTodayInsightSurvivesMalformedCacheEntry(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	fx := newSchedulerFixture(now)
	ctx := context.Background()

	today := now.Format(model.DateFormat)
	require.NoError(t, fx.kv.Set(ctx, lastGeneratedKey(1), today, 0))
	require.NoError(t, fx.kv.Set(ctx, insightKey(1, today), "{not json", 0))

	got := fx.scheduler.TodayInsight(ctx, 1)
	require.NotNil(t, got)
	assert.Equal(t, 1, *fx.agentCalls, "a corrupt cache entry regenerates instead of failing")
}
