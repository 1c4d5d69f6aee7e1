package insight

import (
	"fmt"
	"sort"
	"time"

	"lym-insights/internal/model"
	"lym-insights/pkg/metrics"
)

// Rule is one declarative detection rule: a pure predicate over the context
// and agent outputs that yields zero or one candidate event.
type Rule struct {
	ID       string
	Evaluate func(uc *model.UserContext, report *model.AnalysisReport, now time.Time) *model.DetectedEvent
}

// milestones is an exact membership set, not a threshold.
var milestones = map[int]bool{7: true, 14: true, 21: true, 30: true, 60: true, 90: true}

// Rules is the fixed, ordered detection rule set. Order matters: it is the
// tie-breaker for events of equal priority.
var Rules = []Rule{
	{
		ID: model.EventCaloricDeficit,
		Evaluate: func(uc *model.UserContext, _ *model.AnalysisReport, now time.Time) *model.DetectedEvent {
			target := uc.Profile.TargetCalories
			if target <= 0 || now.Hour() < 18 {
				return nil
			}
			today := uc.TodayNutrition()
			if today.Calories/target >= 0.5 {
				return nil
			}
			return &model.DetectedEvent{
				ID:       eventID(model.EventCaloricDeficit, now),
				Type:     model.EventCaloricDeficit,
				Priority: model.PriorityCritical,
				Title:    "Your calorie intake is very low today",
				Message: fmt.Sprintf("You've logged %.0f of %.0f kcal and the day is almost over. A balanced dinner would help you close the gap.",
					today.Calories, target),
				Category:   "nutrition",
				DetectedAt: now,
			}
		},
	},
	{
		ID: model.EventProteinDeficiency,
		Evaluate: func(uc *model.UserContext, _ *model.AnalysisReport, now time.Time) *model.DetectedEvent {
			target := uc.Profile.TargetProteins
			if target <= 0 {
				return nil
			}
			low := 0
			for _, date := range uc.Window {
				if uc.Nutrition[date].Proteins < 0.6*target {
					low++
				}
			}
			if low < 3 {
				return nil
			}
			return &model.DetectedEvent{
				ID:       eventID(model.EventProteinDeficiency, now),
				Type:     model.EventProteinDeficiency,
				Priority: model.PriorityHigh,
				Title:    "Protein intake has been low this week",
				Message: fmt.Sprintf("%d of the last 7 days were below 60%% of your protein target. Try adding a protein source to each meal.",
					low),
				Category:   "nutrition",
				DetectedAt: now,
			}
		},
	},
	{
		ID: model.EventPoorSleep,
		Evaluate: func(uc *model.UserContext, _ *model.AnalysisReport, now time.Time) *model.DetectedEvent {
			if len(uc.Wellness) < 5 {
				return nil
			}
			short := 0
			for _, e := range uc.Wellness {
				if e.SleepHours < 6 {
					short++
				}
			}
			if short < 3 {
				return nil
			}
			return &model.DetectedEvent{
				ID:       eventID(model.EventPoorSleep, now),
				Type:     model.EventPoorSleep,
				Priority: model.PriorityHigh,
				Title:    "A pattern of short nights is building up",
				Message: fmt.Sprintf("You slept less than 6 hours on %d nights this week. Sleep debt makes cravings and recovery worse.",
					short),
				Category:   "wellness",
				DetectedAt: now,
			}
		},
	},
	{
		ID: model.EventChronicStress,
		Evaluate: func(uc *model.UserContext, _ *model.AnalysisReport, now time.Time) *model.DetectedEvent {
			if len(uc.Wellness) < 5 {
				return nil
			}
			stressed := 0
			for _, e := range uc.Wellness {
				if e.StressLevel >= 4 {
					stressed++
				}
			}
			if stressed < 4 {
				return nil
			}
			return &model.DetectedEvent{
				ID:         eventID(model.EventChronicStress, now),
				Type:       model.EventChronicStress,
				Priority:   model.PriorityHigh,
				Title:      "Stress has been high most of the week",
				Message:    fmt.Sprintf("You reported high stress on %d days. A short walk or breathing break can take the edge off.", stressed),
				Category:   "wellness",
				DetectedAt: now,
			}
		},
	},
	{
		ID: model.EventStreakMilestone,
		Evaluate: func(uc *model.UserContext, _ *model.AnalysisReport, now time.Time) *model.DetectedEvent {
			streak := uc.Gamification.Streak
			if !milestones[streak] {
				return nil
			}
			return &model.DetectedEvent{
				ID:         eventID(model.EventStreakMilestone, now),
				Type:       model.EventStreakMilestone,
				Priority:   model.PriorityMedium,
				Title:      fmt.Sprintf("%d-day streak!", streak),
				Message:    fmt.Sprintf("You've tracked %d days in a row. Consistency is what makes results stick.", streak),
				Category:   "gamification",
				DetectedAt: now,
			}
		},
	},
	{
		ID: model.EventCorrelation,
		Evaluate: func(_ *model.UserContext, report *model.AnalysisReport, now time.Time) *model.DetectedEvent {
			corr := report.Get(model.AgentCorrelation)
			if corr == nil || len(corr.Insights) == 0 {
				return nil
			}
			return &model.DetectedEvent{
				ID:         eventID(model.EventCorrelation, now),
				Type:       model.EventCorrelation,
				Priority:   model.PriorityMedium,
				Title:      "We noticed a connection in your week",
				Message:    model.Truncate(corr.Insights[0], 100),
				Category:   "coaching",
				Source:     model.AgentCorrelation,
				DetectedAt: now,
			}
		},
	},
	{
		ID: model.EventGoodAdherence,
		Evaluate: func(uc *model.UserContext, _ *model.AnalysisReport, now time.Time) *model.DetectedEvent {
			target := uc.Profile.TargetCalories
			if target <= 0 || uc.Gamification.Streak < 7 {
				return nil
			}
			var sum float64
			var days int
			for _, date := range uc.Window {
				day := uc.Nutrition[date]
				if day.MealCount > 0 {
					sum += day.Calories
					days++
				}
			}
			if days == 0 {
				return nil
			}
			ratio := (sum / float64(days)) / target
			if ratio < 0.85 || ratio > 1.15 {
				return nil
			}
			return &model.DetectedEvent{
				ID:         eventID(model.EventGoodAdherence, now),
				Type:       model.EventGoodAdherence,
				Priority:   model.PriorityLow,
				Title:      "Solid week of staying on target",
				Message:    "Your average intake stayed within 15% of your calorie target all week. Keep the rhythm going.",
				Category:   "nutrition",
				DetectedAt: now,
			}
		},
	},
	{
		ID: model.EventHydration,
		Evaluate: func(uc *model.UserContext, _ *model.AnalysisReport, now time.Time) *model.DetectedEvent {
			if now.Hour() < 14 {
				return nil
			}
			if uc.TodayNutrition().WaterML >= 1000 {
				return nil
			}
			return &model.DetectedEvent{
				ID:         eventID(model.EventHydration, now),
				Type:       model.EventHydration,
				Priority:   model.PriorityLow,
				Title:      "Time for a glass of water",
				Message:    "You've logged less than a liter of water so far today. A glass now keeps energy and focus up.",
				Category:   "hydration",
				DetectedAt: now,
			}
		},
	},
}

// Detect evaluates the rule set in order and returns the fired events sorted
// by priority rank, stable on ties (rule order preserved).
func Detect(uc *model.UserContext, report *model.AnalysisReport, now time.Time) []model.DetectedEvent {
	if uc == nil {
		return nil
	}
	if report == nil {
		report = model.EmptyReport(now)
	}

	var events []model.DetectedEvent
	for _, rule := range Rules {
		if ev := rule.Evaluate(uc, report, now); ev != nil {
			events = append(events, *ev)
			metrics.IncrementEventDetected(rule.ID, string(ev.Priority))
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return model.PriorityRank[events[i].Priority] < model.PriorityRank[events[j].Priority]
	})
	return events
}

func eventID(eventType string, now time.Time) string {
	return fmt.Sprintf("%s-%s", eventType, now.Format("20060102"))
}
