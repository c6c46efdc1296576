package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxPriority is the upper bound of the priority scale
const MaxPriority = 10

var severityWeights = map[string]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

var trafficImpactWeights = map[string]int{
	"none":   0,
	"low":    1,
	"medium": 2,
	"high":   3,
	"severe": 4,
}

var safetyRiskWeights = map[string]int{
	"none":     0,
	"low":      1,
	"medium":   2,
	"high":     3,
	"critical": 4,
}

// ComputePriority derives the 0-10 triage score from a report's
// severity, traffic impact, safety risk, age and vote count. Unknown
// enum values weigh 0 rather than erroring, so the function is total.
func ComputePriority(severity, trafficImpact, safetyRisk string, ageDays int, voteCount int) int {
	score := severityWeights[severity] + trafficImpactWeights[trafficImpact] + safetyRiskWeights[safetyRisk]

	if ageDays > 30 {
		score += 2
	} else if ageDays > 7 {
		score++
	}

	if voteCount > 10 {
		score += 2
	} else if voteCount > 5 {
		score++
	}

	if score > MaxPriority {
		return MaxPriority
	}
	return score
}

// AgeInDays returns the whole days elapsed between createdAt and now
func AgeInDays(createdAt primitive.DateTime, now time.Time) int {
	age := now.Sub(createdAt.Time())
	if age < 0 {
		return 0
	}
	return int(age.Hours() / 24)
}

// Reprioritize recomputes the derived priority in place. Every mutating
// path that touches severity, trafficImpact, safetyRisk or votes must
// call this before persisting.
func (d *ReportDetails) Reprioritize(now time.Time) {
	d.Priority = ComputePriority(d.Severity, d.TrafficImpact, d.SafetyRisk,
		AgeInDays(d.CreatedAt, now), len(d.Votes))
}
