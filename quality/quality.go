// Package quality scores datasets against the environment's data quality
// thresholds and produces reports for the quality endpoint.
package quality

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shadow-goose/grants-api/config"
	"github.com/shadow-goose/grants-api/grants"
)

// Level buckets an overall quality score.
type Level string

const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelFair      Level = "fair"
	LevelPoor      Level = "poor"
	LevelFailed    Level = "failed"
)

// Metric is one scored quality dimension with its pass/fail threshold.
type Metric struct {
	Name      string         `json:"name"`
	Value     float64        `json:"value"`
	Threshold float64        `json:"threshold"`
	Passed    bool           `json:"passed"`
	Details   map[string]any `json:"details,omitempty"`
}

// Report is the full outcome of one validation run.
type Report struct {
	DataType       string    `json:"data_type"`
	Environment    string    `json:"environment"`
	Timestamp      time.Time `json:"timestamp"`
	OverallScore   float64   `json:"overall_score"`
	QualityLevel   Level     `json:"quality_level"`
	Metrics        []Metric  `json:"metrics"`
	Issues         []string  `json:"issues"`
	Recommendation []string  `json:"recommendations"`
	ValidationMS   float64   `json:"validation_time_ms"`
}

// Validator scores datasets against per-environment thresholds.
type Validator struct {
	env        config.Environment
	thresholds config.QualityThresholds
}

func NewValidator(env config.Environment) *Validator {
	return &Validator{env: env, thresholds: config.QualityThresholdsFor(env)}
}

// ValidateGrants runs the full metric suite over the grant catalogue.
func (v *Validator) ValidateGrants(catalogue []*grants.Grant) *Report {
	start := time.Now()

	report := &Report{
		DataType:       "grants",
		Environment:    string(v.env),
		Timestamp:      time.Now().UTC(),
		Metrics:        []Metric{},
		Issues:         []string{},
		Recommendation: []string{},
	}

	if len(catalogue) == 0 {
		report.QualityLevel = LevelFailed
		report.Issues = append(report.Issues, "no grants data provided")
		report.ValidationMS = float64(time.Since(start).Microseconds()) / 1000
		return report
	}

	v.addMetric(report, "completeness", completeness(catalogue), v.thresholds.Completeness,
		"review data collection process to ensure all required fields are captured")
	v.addMetric(report, "accuracy", accuracy(catalogue), v.thresholds.Accuracy,
		"implement data validation rules and review data sources")
	v.addMetric(report, "consistency", consistency(catalogue), v.thresholds.Consistency,
		"standardize data formats and implement consistency checks")
	v.addMetric(report, "timeliness", timeliness(catalogue), v.thresholds.Timeliness,
		"implement regular data refresh processes")
	v.addMetric(report, "currency_format", currencyFormat(catalogue), 0.95,
		"ensure all monetary values are in AUD format")

	report.OverallScore = overallScore(report.Metrics)
	report.QualityLevel = levelFor(report.OverallScore)
	report.ValidationMS = float64(time.Since(start).Microseconds()) / 1000

	log.Info().
		Str("data_type", report.DataType).
		Str("quality_level", string(report.QualityLevel)).
		Float64("overall_score", report.OverallScore).
		Msg("data quality validation completed")

	return report
}

func (v *Validator) addMetric(report *Report, name string, value, threshold float64, recommendation string) {
	passed := value >= threshold
	report.Metrics = append(report.Metrics, Metric{
		Name:      name,
		Value:     value,
		Threshold: threshold,
		Passed:    passed,
	})
	if !passed {
		report.Issues = append(report.Issues,
			fmt.Sprintf("%s below threshold: %.2f < %.2f", name, value, threshold))
		report.Recommendation = append(report.Recommendation, recommendation)
	}
}

// completeness is the fraction of required fields populated across the set.
func completeness(catalogue []*grants.Grant) float64 {
	const requiredFields = 7
	total := len(catalogue) * requiredFields
	missing := 0
	for _, g := range catalogue {
		if g.ID == "" {
			missing++
		}
		if g.Title == "" {
			missing++
		}
		if g.Description == "" {
			missing++
		}
		if g.Amount == 0 {
			missing++
		}
		if g.Deadline.IsZero() {
			missing++
		}
		if g.Category == "" {
			missing++
		}
		if g.Source == "" {
			missing++
		}
	}
	return float64(total-missing) / float64(total)
}

// accuracy counts grants with a positive amount, future deadline and a title.
func accuracy(catalogue []*grants.Grant) float64 {
	valid := 0
	now := time.Now()
	for _, g := range catalogue {
		if g.Amount > 0 && g.Deadline.After(now) && g.Title != "" {
			valid++
		}
	}
	return float64(valid) / float64(len(catalogue))
}

// consistency counts grants whose identifiers are unique and whose category
// is one of the known values.
func consistency(catalogue []*grants.Grant) float64 {
	known := make(map[grants.Category]bool, len(grants.Categories))
	for _, c := range grants.Categories {
		known[c] = true
	}

	seen := map[string]int{}
	for _, g := range catalogue {
		seen[g.ID]++
	}

	consistent := 0
	for _, g := range catalogue {
		if seen[g.ID] == 1 && known[g.Category] {
			consistent++
		}
	}
	return float64(consistent) / float64(len(catalogue))
}

// timeliness counts grants touched within the last 30 days. Records without
// timestamps count as current.
func timeliness(catalogue []*grants.Grant) float64 {
	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	current := 0
	for _, g := range catalogue {
		switch {
		case !g.UpdatedAt.IsZero():
			if !g.UpdatedAt.Before(cutoff) {
				current++
			}
		case !g.CreatedAt.IsZero():
			if !g.CreatedAt.Before(cutoff) {
				current++
			}
		default:
			current++
		}
	}
	return float64(current) / float64(len(catalogue))
}

// currencyFormat counts amounts that are valid positive AUD values.
func currencyFormat(catalogue []*grants.Grant) float64 {
	valid := 0
	for _, g := range catalogue {
		if g.Amount > 0 {
			valid++
		}
	}
	return float64(valid) / float64(len(catalogue))
}

// overallScore is a weighted average: completeness and accuracy carry 0.3,
// consistency and timeliness 0.2, anything else 1.0.
func overallScore(metrics []Metric) float64 {
	if len(metrics) == 0 {
		return 0
	}
	weightedSum, totalWeight := 0.0, 0.0
	for _, m := range metrics {
		weight := 1.0
		switch m.Name {
		case "completeness", "accuracy":
			weight = 0.3
		case "consistency", "timeliness":
			weight = 0.2
		}
		weightedSum += m.Value * weight
		totalWeight += weight
	}
	return weightedSum / totalWeight
}

func levelFor(score float64) Level {
	switch {
	case score >= 0.95:
		return LevelExcellent
	case score >= 0.85:
		return LevelGood
	case score >= 0.75:
		return LevelFair
	case score >= 0.60:
		return LevelPoor
	default:
		return LevelFailed
	}
}
