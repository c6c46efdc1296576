package models

// Capabilities an operator can hold
const (
	CapEditReports       = "edit_reports"
	CapAssignContractors = "assign_contractors"
	CapManageUsers       = "manage_users"
)

// User holds the structure for the user collection in mongo
type User struct {
	ID      string      `json:"_id" bson:"_id"`
	Details UserDetails `json:"user" bson:"user"`
	Version int32       `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined
// in the user collection in mongo
type UserDetails struct {
	Email        string      `json:"email" bson:"email"`
	Name         string      `json:"name" bson:"name"`
	Username     string      `json:"username" bson:"username"`
	Password     string      `json:"password" bson:"password"`
	Role         string      `json:"role" bson:"role"`
	Capabilities []string    `json:"capabilities" bson:"capabilities"`
	CreatedAt    interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt    interface{} `json:"updatedAt" bson:"updatedAt"`
}

// HasCapability reports whether the user holds the named capability
func (u User) HasCapability(cap string) bool {
	for _, c := range u.Details.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}
