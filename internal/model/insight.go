package model

import "time"

// Priority of a detected event.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// PriorityRank orders priorities by severity, lowest rank first.
var PriorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Severity of a user-facing insight.
type Severity string

const (
	SeverityInfo        Severity = "info"
	SeverityWarning     Severity = "warning"
	SeverityCelebration Severity = "celebration"
)

// Event types emitted by the detector rules.
const (
	EventCaloricDeficit    = "caloric_deficit"
	EventProteinDeficiency = "protein_deficiency"
	EventPoorSleep         = "poor_sleep"
	EventChronicStress     = "chronic_stress"
	EventStreakMilestone   = "streak_milestone"
	EventCorrelation       = "correlation"
	EventGoodAdherence     = "good_adherence"
	EventHydration         = "hydration"
)

// Display bounds for user-facing insight content.
const (
	MaxTitleLen = 50
	MaxBodyLen  = 150
)

// DetectedEvent is one candidate produced by the detector rule set.
type DetectedEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Priority   Priority               `json:"priority"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Category   string                 `json:"category"`
	Source     string                 `json:"source,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	DetectedAt time.Time              `json:"detected_at"`
}

// DailyInsight is the single user-facing insight for a calendar day.
type DailyInsight struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Category   string   `json:"category"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source,omitempty"`
	DeepLink   string   `json:"deep_link,omitempty"`
}

// NotificationHistoryItem is one append-only send-history record.
type NotificationHistoryItem struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	SentAt   time.Time `json:"sent_at"`
}

// Truncate bounds s to max runes, ellipsized.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

// Categories declares the user-activity categories known to the product.
// Only a subset has detector rules wired today; the rest are data-only.
var Categories = []string{
	"nutrition",
	"wellness",
	"hydration",
	"gamification",
	"coaching",
	"activity",
	"recovery",
}
