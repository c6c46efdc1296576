package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Report issue types
const (
	TypePothole     = "pothole"
	TypeCrack       = "crack"
	TypeWaterlogged = "waterlogged"
	TypeDebris      = "debris"
	TypeSignage     = "signage"
	TypeOther       = "other"
)

// Report severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Report statuses
const (
	StatusPending    = "pending"
	StatusVerified   = "verified"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
)

// Vote directions
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// Report holds the structure for the reports collection in mongo
type Report struct {
	ID      primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Details ReportDetails      `json:"report" bson:"report"`
	Version int32              `json:"__v" bson:"__v"`
}

// ReportDetails holds the structure for the inner report structure as
// defined in the reports collection in mongo
type ReportDetails struct {
	SubmittedBy   string             `json:"submittedBy" bson:"submittedBy"`
	Type          string             `json:"type" bson:"type"`
	Severity      string             `json:"severity" bson:"severity"`
	Status        string             `json:"status" bson:"status"`
	Description   string             `json:"description" bson:"description"`
	Address       string             `json:"address" bson:"address"`
	Latitude      *float64           `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude     *float64           `json:"longitude,omitempty" bson:"longitude,omitempty"`
	Images        []string           `json:"images" bson:"images"`
	TrafficImpact string             `json:"trafficImpact" bson:"trafficImpact"`
	SafetyRisk    string             `json:"safetyRisk" bson:"safetyRisk"`
	Priority      int                `json:"priority" bson:"priority"`
	Votes         []Vote             `json:"votes" bson:"votes"`
	AdminNotes    []AdminNote        `json:"adminNotes" bson:"adminNotes"`
	Contractor    *Contractor        `json:"contractor,omitempty" bson:"contractor,omitempty"`
	Verification  *Verification      `json:"verification,omitempty" bson:"verification,omitempty"`
	Resolution    *Resolution        `json:"resolution,omitempty" bson:"resolution,omitempty"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt     primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// Vote is a single user's up/down signal on a report. A user has at
// most one vote per report; re-voting replaces the previous vote.
type Vote struct {
	UserID    string             `json:"userId" bson:"userId"`
	Direction string             `json:"direction" bson:"direction"`
	CastAt    primitive.DateTime `json:"castAt" bson:"castAt"`
}

// AdminNote is an operator note attached to a report
type AdminNote struct {
	ID        primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Note      string             `json:"note" bson:"note"`
	AuthorID  string             `json:"authorId" bson:"authorId"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// Contractor is the crew assigned to fix a report
type Contractor struct {
	Name       string             `json:"name" bson:"name"`
	AssignedAt primitive.DateTime `json:"assignedAt" bson:"assignedAt"`
	AssignedBy string             `json:"assignedBy" bson:"assignedBy"`
}

// Verification is stamped once, on the transition that first reaches verified
type Verification struct {
	VerifierID string             `json:"verifierId" bson:"verifierId"`
	Timestamp  primitive.DateTime `json:"timestamp" bson:"timestamp"`
	Notes      string             `json:"notes" bson:"notes"`
}

// Resolution is stamped once, on the transition that first reaches resolved
type Resolution struct {
	ResolverID string             `json:"resolverId" bson:"resolverId"`
	Timestamp  primitive.DateTime `json:"timestamp" bson:"timestamp"`
	Notes      string             `json:"notes" bson:"notes"`
}

// ValidType reports whether t is a known issue type
func ValidType(t string) bool {
	switch t {
	case TypePothole, TypeCrack, TypeWaterlogged, TypeDebris, TypeSignage, TypeOther:
		return true
	}
	return false
}

// ValidSeverity reports whether s is a known severity
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle status
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusVerified, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// ValidDirection reports whether d is a known vote direction
func ValidDirection(d string) bool {
	return d == VoteUp || d == VoteDown
}

// VoteFor returns the user's current vote on the report, if any
func (d ReportDetails) VoteFor(userID string) *Vote {
	for i := range d.Votes {
		if d.Votes[i].UserID == userID {
			return &d.Votes[i]
		}
	}
	return nil
}
