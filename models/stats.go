package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Submitter levels by point thresholds
const (
	LevelBronze   = "Bronze"
	LevelSilver   = "Silver"
	LevelGold     = "Gold"
	LevelPlatinum = "Platinum"
)

// SubmitterStats is the per-submitter projection over the reports
// collection. It is a cache: fully recomputed from the user's current
// reports, never incrementally patched.
type SubmitterStats struct {
	ID         primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	UserID     string             `json:"userId" bson:"userId"`
	Submitted  int                `json:"submitted" bson:"submitted"`
	Pending    int                `json:"pending" bson:"pending"`
	Verified   int                `json:"verified" bson:"verified"`
	InProgress int                `json:"inProgress" bson:"inProgress"`
	Resolved   int                `json:"resolved" bson:"resolved"`
	Points     int                `json:"points" bson:"points"`
	Level      string             `json:"level" bson:"level"`
	UpdatedAt  primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// OperatorStats is the system-wide projection served to operator
// dashboards. Same caching rules as SubmitterStats.
type OperatorStats struct {
	ID                primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	TotalManaged      int                `json:"totalManaged" bson:"totalManaged"`
	Resolved          int                `json:"resolved" bson:"resolved"`
	InProgress        int                `json:"inProgress" bson:"inProgress"`
	Pending           int                `json:"pending" bson:"pending"`
	UsersManaged      int64              `json:"usersManaged" bson:"usersManaged"`
	AvgResolutionDays float64            `json:"avgResolutionDays" bson:"avgResolutionDays"`
	EfficiencyScore   float64            `json:"efficiencyScore" bson:"efficiencyScore"`
	UpdatedAt         primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// LevelForPoints maps points to a submitter level
func LevelForPoints(points int) string {
	switch {
	case points >= 1000:
		return LevelPlatinum
	case points >= 500:
		return LevelGold
	case points >= 100:
		return LevelSilver
	default:
		return LevelBronze
	}
}

// ComputeSubmitterStats recomputes a submitter's stats from their
// current reports. Calling it twice on the same snapshot yields the
// same output.
func ComputeSubmitterStats(userID string, reports []Report, now primitive.DateTime) SubmitterStats {
	stats := SubmitterStats{UserID: userID, UpdatedAt: now}
	for _, r := range reports {
		stats.Submitted++
		switch r.Details.Status {
		case StatusPending:
			stats.Pending++
		case StatusVerified:
			stats.Verified++
		case StatusInProgress:
			stats.InProgress++
		case StatusResolved:
			stats.Resolved++
		}
	}
	stats.Points = stats.Submitted*10 + stats.Resolved*20
	stats.Level = LevelForPoints(stats.Points)
	return stats
}

// ComputeOperatorStats recomputes the system-wide operator dashboard
// stats from a full reports snapshot and the user directory size.
// Average resolution time only counts resolved reports that carry a
// resolution stamp.
func ComputeOperatorStats(reports []Report, userCount int64, now primitive.DateTime) OperatorStats {
	stats := OperatorStats{UsersManaged: userCount, UpdatedAt: now}

	var resolutionDays float64
	var resolutionSamples int
	for _, r := range reports {
		stats.TotalManaged++
		switch r.Details.Status {
		case StatusPending:
			stats.Pending++
		case StatusInProgress:
			stats.InProgress++
		case StatusResolved:
			stats.Resolved++
			if r.Details.Resolution != nil {
				days := r.Details.Resolution.Timestamp.Time().Sub(r.Details.CreatedAt.Time()).Hours() / 24
				if days >= 0 {
					resolutionDays += days
					resolutionSamples++
				}
			}
		}
	}

	if resolutionSamples > 0 {
		stats.AvgResolutionDays = resolutionDays / float64(resolutionSamples)
	}

	var resolutionRate float64
	if stats.TotalManaged > 0 {
		resolutionRate = float64(stats.Resolved) / float64(stats.TotalManaged) * 100
	}
	timeScore := 100 - stats.AvgResolutionDays
	if timeScore < 0 {
		timeScore = 0
	}
	stats.EfficiencyScore = 0.7*resolutionRate + 0.3*timeScore
	return stats
}
