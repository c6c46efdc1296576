package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestComputePriorityMaxedOut(t *testing.T) {
	got := ComputePriority(SeverityCritical, "severe", "critical", 0, 0)
	assert.Equal(t, 10, got)
}

func TestComputePriorityClampsAboveTen(t *testing.T) {
	got := ComputePriority(SeverityCritical, "severe", "critical", 45, 20)
	assert.Equal(t, 10, got)
}

func TestComputePriorityAgeBonus(t *testing.T) {
	base := ComputePriority(SeverityLow, "none", "none", 0, 0)
	assert.Equal(t, 1, base)
	assert.Equal(t, base+1, ComputePriority(SeverityLow, "none", "none", 8, 0))
	assert.Equal(t, base+2, ComputePriority(SeverityLow, "none", "none", 31, 0))
	// boundaries are exclusive
	assert.Equal(t, base, ComputePriority(SeverityLow, "none", "none", 7, 0))
	assert.Equal(t, base+1, ComputePriority(SeverityLow, "none", "none", 30, 0))
}

func TestComputePriorityVoteBonus(t *testing.T) {
	base := ComputePriority(SeverityMedium, "low", "low", 0, 0)
	assert.Equal(t, 4, base)
	assert.Equal(t, base, ComputePriority(SeverityMedium, "low", "low", 0, 5))
	assert.Equal(t, base+1, ComputePriority(SeverityMedium, "low", "low", 0, 6))
	assert.Equal(t, base+1, ComputePriority(SeverityMedium, "low", "low", 0, 10))
	assert.Equal(t, base+2, ComputePriority(SeverityMedium, "low", "low", 0, 11))
}

func TestComputePriorityUnknownEnumsAreSafe(t *testing.T) {
	got := ComputePriority("catastrophic", "apocalyptic", "", -3, 0)
	assert.Equal(t, 0, got)
}

func TestComputePriorityInRangeForAllCombinations(t *testing.T) {
	severities := []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical, "bogus"}
	impacts := []string{"none", "low", "medium", "high", "severe", "bogus"}
	risks := []string{"none", "low", "medium", "high", "critical", "bogus"}
	ages := []int{0, 7, 8, 30, 31, 400}
	votes := []int{0, 5, 6, 10, 11, 999}

	for _, sev := range severities {
		for _, imp := range impacts {
			for _, risk := range risks {
				for _, age := range ages {
					for _, vc := range votes {
						got := ComputePriority(sev, imp, risk, age, vc)
						assert.GreaterOrEqual(t, got, 0)
						assert.LessOrEqual(t, got, 10)
					}
				}
			}
		}
	}
}

func TestAgeInDays(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	created := primitive.NewDateTimeFromTime(now.Add(-49 * time.Hour))
	assert.Equal(t, 2, AgeInDays(created, now))

	future := primitive.NewDateTimeFromTime(now.Add(time.Hour))
	assert.Equal(t, 0, AgeInDays(future, now))
}

func TestReprioritize(t *testing.T) {
	now := time.Now()
	d := ReportDetails{
		Severity:      SeverityHigh,
		TrafficImpact: "medium",
		SafetyRisk:    "low",
		CreatedAt:     primitive.NewDateTimeFromTime(now),
		Votes: []Vote{
			{UserID: "a", Direction: VoteUp},
			{UserID: "b", Direction: VoteUp},
		},
	}
	d.Reprioritize(now)
	assert.Equal(t, 6, d.Priority)
}
