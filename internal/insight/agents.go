package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"lym-insights/internal/llm"
	"lym-insights/internal/model"
)

// Analyzer is one independent analysis agent run by the orchestrator.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error)
}

// contextSummary is the compact context representation sent to the provider.
// It also feeds the request fingerprint, so identical weeks hit the cache.
type contextSummary struct {
	Goal           string                `json:"goal"`
	Age            int                   `json:"age"`
	Weight         float64               `json:"weight"`
	TargetCalories float64               `json:"target_calories"`
	TargetProteins float64               `json:"target_proteins"`
	Days           []model.NutritionDay  `json:"days"`
	Wellness       []model.WellnessEntry `json:"wellness"`
	Streak         int                   `json:"streak"`
	DaysTracked    int                   `json:"days_tracked"`
}

func summarize(uc *model.UserContext) contextSummary {
	days := make([]model.NutritionDay, 0, len(uc.Window))
	for _, date := range uc.Window {
		if day, ok := uc.Nutrition[date]; ok {
			days = append(days, day)
		}
	}
	return contextSummary{
		Goal:           uc.Profile.Goal,
		Age:            uc.Profile.Age,
		Weight:         uc.Profile.Weight,
		TargetCalories: uc.Profile.TargetCalories,
		TargetProteins: uc.Profile.TargetProteins,
		Days:           days,
		Wellness:       uc.Wellness,
		Streak:         uc.Gamification.Streak,
		DaysTracked:    uc.DaysTracked,
	}
}

// llmAnalyzer calls the rate-limited executor with an agent-specific prompt
// and parses the structured JSON reply.
type llmAnalyzer struct {
	name   string
	prompt string
	exec   *llm.Executor
}

func (a *llmAnalyzer) Name() string { return a.name }

func (a *llmAnalyzer) Analyze(ctx context.Context, uc *model.UserContext) (*model.AnalysisResult, error) {
	summary := summarize(uc)
	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode context summary: %w", err)
	}

	msgs := []llm.Message{
		{Role: "system", Content: a.prompt},
		{Role: "user", Content: string(raw)},
	}

	completion, err := a.exec.Execute(ctx, a.name, msgs, llm.Options{
		Temperature:    0.4,
		ResponseFormat: "json",
		Fingerprint:    llm.Fingerprint(a.name, summary),
	})
	if err != nil {
		return nil, err
	}
	if completion == nil {
		// Budget exhausted: skip this agent without failing the run.
		return nil, nil
	}

	var result model.AnalysisResult
	content := strings.TrimSpace(completion.Content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("agent %s returned malformed output: %w", a.name, err)
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result, nil
}

const analyzerReplyFormat = ` Reply with a JSON object: {"insights": ["..."], "confidence": 0.0-1.0, "sources": ["..."]}.`

// NewAnalyzers builds the standard agent set, all backed by the same
// rate-limited executor.
func NewAnalyzers(exec *llm.Executor) []Analyzer {
	return []Analyzer{
		&llmAnalyzer{
			name: model.AgentBehavioral,
			exec: exec,
			prompt: "You are a nutrition behavior analyst. Given a week of per-day " +
				"nutrition aggregates and the user's targets, identify the dominant " +
				"eating patterns and the single most actionable behavioral insight." +
				analyzerReplyFormat,
		},
		&llmAnalyzer{
			name: model.AgentWellness,
			exec: exec,
			prompt: "You are a wellness analyst. Given a week of sleep, stress and " +
				"energy check-ins, describe the user's recovery state and flag any " +
				"concerning trend." + analyzerReplyFormat,
		},
		&llmAnalyzer{
			name: model.AgentCoaching,
			exec: exec,
			prompt: "You are a supportive nutrition coach. Given the user's weekly " +
				"data and goal, produce one short, encouraging piece of advice for " +
				"tomorrow." + analyzerReplyFormat,
		},
		&llmAnalyzer{
			name: model.AgentCorrelation,
			exec: exec,
			prompt: "You are a cross-feature correlation analyst. Given nutrition " +
				"and wellness data for the same week, surface correlations between " +
				"them (for example late caloric deficits and poor sleep)." +
				analyzerReplyFormat,
		},
	}
}
