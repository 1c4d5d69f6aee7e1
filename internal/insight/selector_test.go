package insight

import (
	"strings"
	"testing"
	"time"

	"lym-insights/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestSelectCriticalEventWinsOutright(t *testing.T) {
	now := time.Date(2026, 8, 25, 19, 0, 0, 0, time.UTC)

	report := model.EmptyReport(now)
	report.Results[model.AgentBehavioral] = &model.AnalysisResult{
		Insights: []string{"agent output that should lose"}, Confidence: 0.9,
	}
	events := []model.DetectedEvent{
		{Type: model.EventCaloricDeficit, Priority: model.PriorityCritical, Title: "Very low intake", Message: "Eat something.", Category: "nutrition"},
		{Type: model.EventStreakMilestone, Priority: model.PriorityMedium, Title: "7-day streak!", Message: "Nice.", Category: "gamification"},
	}

	got := Select(report, events, now)
	assert.Equal(t, "Very low intake", got.Title)
	assert.Equal(t, model.SeverityWarning, got.Severity)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, model.EventCaloricDeficit, got.Source)
	assert.Equal(t, "lym://journal", got.DeepLink)
}

func TestSelectHighEventIsInfoSeverity(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	events := []model.DetectedEvent{
		{Type: model.EventPoorSleep, Priority: model.PriorityHigh, Title: "Short nights", Message: "Sleep more.", Category: "wellness"},
	}

	got := Select(model.EmptyReport(now), events, now)
	assert.Equal(t, "Short nights", got.Title)
	assert.Equal(t, model.SeverityInfo, got.Severity)
	assert.Equal(t, 0.9, got.Confidence)
}

func TestSelectMilestoneIsCelebration(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	// The milestone is a medium event, but it outranks other mediums and the
	// agent branches because celebration comes second in the ladder.
	report := model.EmptyReport(now)
	report.Results[model.AgentBehavioral] = &model.AnalysisResult{
		Insights: []string{"behavioral finding"}, Confidence: 0.8,
	}
	events := []model.DetectedEvent{
		{Type: model.EventCorrelation, Priority: model.PriorityMedium, Title: "A connection", Message: "x", Category: "coaching"},
		{Type: model.EventStreakMilestone, Priority: model.PriorityMedium, Title: "14-day streak!", Message: "Two weeks straight.", Category: "gamification"},
	}

	got := Select(report, events, now)
	assert.Equal(t, "14-day streak!", got.Title)
	assert.Equal(t, model.SeverityCelebration, got.Severity)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, "lym://progress", got.DeepLink)
}

func TestSelectBehavioralAgentBranch(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	report := model.EmptyReport(now)
	report.Results[model.AgentBehavioral] = &model.AnalysisResult{
		Insights: []string{"Your weekends run 40% over your weekday intake."}, Confidence: 0.75,
	}
	report.Results[model.AgentCorrelation] = &model.AnalysisResult{
		Insights: []string{"correlation finding"}, Confidence: 0.9,
	}

	got := Select(report, nil, now)
	assert.Equal(t, "Something we noticed this week", got.Title)
	assert.Equal(t, "Your weekends run 40% over your weekday intake.", got.Body)
	assert.Equal(t, model.AgentBehavioral, got.Source)
	assert.Equal(t, 0.75, got.Confidence)
	assert.Equal(t, model.SeverityInfo, got.Severity)
}

func TestSelectCorrelationAgentBranch(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	report := model.EmptyReport(now)
	report.Results[model.AgentCorrelation] = &model.AnalysisResult{
		Insights: []string{"Short nights line up with your snacking days."}, Confidence: 0.7,
	}

	got := Select(report, nil, now)
	assert.Equal(t, "Your habits are connected", got.Title)
	assert.Equal(t, model.AgentCorrelation, got.Source)
}

func TestSelectMediumEventBranch(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	events := []model.DetectedEvent{
		{Type: model.EventCorrelation, Priority: model.PriorityMedium, Title: "A connection in your week", Message: "x", Category: "coaching"},
		{Type: model.EventHydration, Priority: model.PriorityLow, Title: "Drink water", Message: "y", Category: "hydration"},
	}

	got := Select(model.EmptyReport(now), events, now)
	assert.Equal(t, "A connection in your week", got.Title)
	assert.Equal(t, model.SeverityInfo, got.Severity)
	assert.Equal(t, 0.7, got.Confidence)
}

func TestSelectFallbackIsDeterministicPerDay(t *testing.T) {
	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := Select(nil, nil, day)
	second := Select(nil, nil, day.Add(8*time.Hour))
	assert.Equal(t, first, second, "same calendar day must yield the same tip")

	assert.Equal(t, model.SeverityInfo, first.Severity)
	assert.Equal(t, 0.3, first.Confidence)
	assert.Equal(t, "fallback", first.Source)
	assert.NotEmpty(t, first.Title)
	assert.NotEmpty(t, first.Body)

	// One full pool cycle later the same tip comes around again.
	cycled := Select(nil, nil, day.AddDate(0, 0, len(fallbackTips)))
	assert.Equal(t, first, cycled)

	next := Select(nil, nil, day.AddDate(0, 0, 1))
	assert.NotEqual(t, first.Title, next.Title)
}

func TestSelectNeverExceedsDisplayBounds(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	longTitle := strings.Repeat("Very long alerting title ", 10)
	longBody := strings.Repeat("An extremely detailed explanation of the situation. ", 10)
	events := []model.DetectedEvent{
		{Type: model.EventCaloricDeficit, Priority: model.PriorityCritical, Title: longTitle, Message: longBody, Category: "nutrition"},
	}

	got := Select(model.EmptyReport(now), events, now)
	assert.LessOrEqual(t, len([]rune(got.Title)), model.MaxTitleLen)
	assert.LessOrEqual(t, len([]rune(got.Body)), model.MaxBodyLen)
	assert.True(t, strings.HasSuffix(got.Title, "…"))
	assert.True(t, strings.HasSuffix(got.Body, "…"))

	// Agent output is bounded too.
	report := model.EmptyReport(now)
	report.Results[model.AgentBehavioral] = &model.AnalysisResult{
		Insights: []string{longBody}, Confidence: 0.8,
	}
	got = Select(report, nil, now)
	assert.LessOrEqual(t, len([]rune(got.Body)), model.MaxBodyLen)
}

func TestSelectFallbackPoolTipsAreDisplaySafe(t *testing.T) {
	for _, tip := range fallbackTips {
		assert.LessOrEqual(t, len([]rune(tip.Title)), model.MaxTitleLen, tip.Title)
		assert.LessOrEqual(t, len([]rune(tip.Body)), model.MaxBodyLen, tip.Title)
		assert.NotEmpty(t, categoryDeepLinks[tip.Category], "tip category %q needs a deep link", tip.Category)
	}
}
