package insight

import (
	"time"

	"lym-insights/internal/model"
)

// fallbackTip is one entry of the deterministic rotation pool.
type fallbackTip struct {
	Title    string
	Body     string
	Category string
}

// fallbackTips is the fixed rotation pool indexed by day of year. Same
// calendar day, same tip; the whole pool cycles over a year.
var fallbackTips = []fallbackTip{
	{"Small plates, honest portions", "Serving meals on smaller plates is one of the easiest ways to keep portions in check without counting anything.", "coaching"},
	{"Protein first", "Starting a meal with the protein source helps satiety kick in earlier and keeps you fuller for longer.", "nutrition"},
	{"A walk after dinner", "Ten minutes of walking after your biggest meal measurably flattens the glucose response.", "activity"},
	{"Water before coffee", "A glass of water first thing in the morning rehydrates you after the night before caffeine narrows your vessels.", "hydration"},
	{"Keep breakfast boring", "Repeating the same balanced breakfast removes one decision a day and stabilizes your morning intake.", "coaching"},
	{"Sleep is a macro", "Consistent sleep regulates ghrelin and leptin, the hormones that drive hunger and fullness.", "wellness"},
	{"Plan tomorrow's lunch tonight", "Deciding your next lunch the evening before removes the midday impulse order entirely.", "coaching"},
	{"Color your plate", "Two colors of vegetables per day covers most micronutrient gaps without any tracking.", "nutrition"},
	{"Stress snacking check", "Before an unplanned snack, rate your stress from 1 to 5. Naming it is often enough to pause it.", "wellness"},
	{"Slow the first bites", "Eating the first half of a meal slowly gives fullness signals the 15 minutes they need to arrive.", "coaching"},
	{"Weigh weekly, not daily", "Weekly weigh-ins smooth out water fluctuations and show the trend that actually matters.", "coaching"},
	{"Leftovers are a strategy", "Cooking double portions turns tonight's dinner into tomorrow's on-target lunch.", "nutrition"},
}

var categoryDeepLinks = map[string]string{
	"nutrition":    "lym://journal",
	"hydration":    "lym://journal",
	"wellness":     "lym://wellness",
	"gamification": "lym://progress",
	"coaching":     "lym://insights",
	"activity":     "lym://insights",
}

// Select walks the fallback ladder top to bottom and always yields exactly
// one display-safe insight, never nil.
func Select(report *model.AnalysisReport, events []model.DetectedEvent, now time.Time) model.DailyInsight {
	if insight, ok := selectRaw(report, events, now); ok {
		return bound(insight)
	}
	return bound(fallbackInsight(now))
}

func selectRaw(report *model.AnalysisReport, events []model.DetectedEvent, now time.Time) (model.DailyInsight, bool) {
	// 1. Any critical or high event wins outright.
	for _, ev := range events {
		if ev.Priority == model.PriorityCritical || ev.Priority == model.PriorityHigh {
			severity := model.SeverityInfo
			if ev.Priority == model.PriorityCritical {
				severity = model.SeverityWarning
			}
			return eventInsight(ev, severity, 0.9), true
		}
	}

	// 2. A streak milestone is worth celebrating.
	for _, ev := range events {
		if ev.Type == model.EventStreakMilestone {
			return eventInsight(ev, model.SeverityCelebration, 1.0), true
		}
	}

	// 3. Behavioral agent output.
	if res := report.Get(model.AgentBehavioral); res != nil && len(res.Insights) > 0 {
		return agentInsight(res, model.AgentBehavioral, "Something we noticed this week"), true
	}

	// 4. Cross-feature correlation output.
	if res := report.Get(model.AgentCorrelation); res != nil && len(res.Insights) > 0 {
		return agentInsight(res, model.AgentCorrelation, "Your habits are connected"), true
	}

	// 5. Any remaining medium event.
	for _, ev := range events {
		if ev.Priority == model.PriorityMedium {
			return eventInsight(ev, model.SeverityInfo, 0.7), true
		}
	}

	return model.DailyInsight{}, false
}

func eventInsight(ev model.DetectedEvent, severity model.Severity, confidence float64) model.DailyInsight {
	return model.DailyInsight{
		Title:      ev.Title,
		Body:       ev.Message,
		Category:   ev.Category,
		Severity:   severity,
		Confidence: confidence,
		Source:     ev.Type,
		DeepLink:   categoryDeepLinks[ev.Category],
	}
}

func agentInsight(res *model.AnalysisResult, agent, title string) model.DailyInsight {
	return model.DailyInsight{
		Title:      title,
		Body:       res.Insights[0],
		Category:   "coaching",
		Severity:   model.SeverityInfo,
		Confidence: res.Confidence,
		Source:     agent,
		DeepLink:   categoryDeepLinks["coaching"],
	}
}

// fallbackInsight indexes the rotation pool by day of year, which makes the
// fallback reproducible for a given calendar day.
func fallbackInsight(now time.Time) model.DailyInsight {
	tip := fallbackTips[now.YearDay()%len(fallbackTips)]
	return model.DailyInsight{
		Title:      tip.Title,
		Body:       tip.Body,
		Category:   tip.Category,
		Severity:   model.SeverityInfo,
		Confidence: 0.3,
		Source:     "fallback",
		DeepLink:   categoryDeepLinks[tip.Category],
	}
}

// bound truncates to display-safe lengths regardless of which branch fired.
func bound(insight model.DailyInsight) model.DailyInsight {
	insight.Title = model.Truncate(insight.Title, model.MaxTitleLen)
	insight.Body = model.Truncate(insight.Body, model.MaxBodyLen)
	return insight
}
