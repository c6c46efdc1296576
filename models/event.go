package models

// Broadcast topics delivered over the websocket hub
const (
	TopicReportNew        = "report:new"
	TopicReportStatus     = "report:status"
	TopicStatusUpdate     = "status:update"
	TopicContractorAssign = "contractor:assign"
	TopicUserStatsUpdate  = "user:stats:update"
	TopicAdminStatsUpdate = "admin:stats:update"
)

// Websocket channels a client can join
const (
	ChannelAdmin = "admin"
)

// StatusUpdateEvent is the lightweight status-only payload
type StatusUpdateEvent struct {
	ReportID string `json:"reportId"`
	Status   string `json:"status"`
}

// ContractorAssignEvent announces a contractor attachment
type ContractorAssignEvent struct {
	ReportID   string     `json:"reportId"`
	Contractor Contractor `json:"contractor"`
	AssignedBy string     `json:"assignedBy"`
}

// UserStatsUpdateEvent tells a submitter's dashboard to re-fetch
type UserStatsUpdateEvent struct {
	UserID string `json:"userId"`
}
