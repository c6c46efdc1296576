package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/roadwatch/roadwatch-api/config"
	"github.com/roadwatch/roadwatch-api/databases"
	"github.com/roadwatch/roadwatch-api/models"
)

// Report exported for testing purposes
type Report struct {
	RDB      databases.ReportDatabase
	UDB      databases.UserDatabase
	Stats    *Stats
	Notifier *Notifier
	Analyzer *ImageAnalyzer
	Geo      *GeoClient
}

type createReportRequest struct {
	UserID        string   `json:"userId"`
	Type          string   `json:"type"`
	Severity      string   `json:"severity"`
	Description   string   `json:"description"`
	Address       string   `json:"address"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Images        []string `json:"images"`
	TrafficImpact string   `json:"trafficImpact"`
	SafetyRisk    string   `json:"safetyRisk"`
	// optional raw photo for classification prefill
	ImageData     string `json:"imageData"`
	ImageMimeType string `json:"imageMimeType"`
}

// CreateReportHandler validates and persists a new report, recomputes
// stats and announces it to connected clients
func (h Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if req.UserID == "" {
		config.ErrorStatus("userId is required", http.StatusBadRequest, w, errors.New("missing userId"))
		return
	}
	if _, err := primitive.ObjectIDFromHex(req.UserID); err != nil {
		config.ErrorStatus("invalid userId", http.StatusBadRequest, w, err)
		return
	}
	if req.Address == "" {
		config.ErrorStatus("address is required", http.StatusBadRequest, w, errors.New("missing address"))
		return
	}
	if req.Type != "" && !models.ValidType(req.Type) {
		config.ErrorStatus("unknown report type", http.StatusBadRequest, w, fmt.Errorf("type %q", req.Type))
		return
	}
	if req.Severity != "" && !models.ValidSeverity(req.Severity) {
		config.ErrorStatus("unknown severity", http.StatusBadRequest, w, fmt.Errorf("severity %q", req.Severity))
		return
	}

	// classification pre-fills type/severity but never overrides an
	// explicit user choice; analyzer failures degrade to defaults
	if (req.Type == "" || req.Severity == "") && req.ImageData != "" {
		if image, err := base64.StdEncoding.DecodeString(req.ImageData); err == nil {
			analysis, err := h.Analyzer.Analyze(r.Context(), image, req.ImageMimeType)
			if err != nil {
				zap.S().Warnw("image analysis unavailable", "error", err)
			} else {
				if req.Type == "" && models.ValidType(analysis.IssueType) {
					req.Type = analysis.IssueType
				}
				if req.Severity == "" && models.ValidSeverity(analysis.Severity) {
					req.Severity = analysis.Severity
				}
			}
		}
	}
	if req.Type == "" {
		req.Type = models.TypeOther
	}
	if req.Severity == "" {
		req.Severity = models.SeverityMedium
	}
	if req.TrafficImpact == "" {
		req.TrafficImpact = "none"
	}
	if req.SafetyRisk == "" {
		req.SafetyRisk = "none"
	}

	now := time.Now()
	details := models.ReportDetails{
		SubmittedBy:   req.UserID,
		Type:          req.Type,
		Severity:      req.Severity,
		Status:        models.StatusPending,
		Description:   req.Description,
		Address:       req.Address,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Images:        req.Images,
		TrafficImpact: req.TrafficImpact,
		SafetyRisk:    req.SafetyRisk,
		Votes:         []models.Vote{},
		AdminNotes:    []models.AdminNote{},
		CreatedAt:     primitive.NewDateTimeFromTime(now),
		UpdatedAt:     primitive.NewDateTimeFromTime(now),
	}
	details.Reprioritize(now)

	report := models.Report{ID: primitive.NewObjectID(), Details: details}
	if _, err := h.RDB.InsertOne(r.Context(), report); err != nil {
		config.ErrorStatus("failed to insert report", http.StatusInternalServerError, w, err)
		return
	}

	h.Stats.RefreshAfterMutation(r.Context(), req.UserID)
	Broadcast(models.TopicReportNew, report)

	b, err := json.Marshal(report)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// reportWithEnrichment is the read-time response shape; weather and
// resolvedAddress are advisory and absent when the collaborator is down
type reportWithEnrichment struct {
	models.Report
	Weather         *WeatherConditions `json:"weather,omitempty"`
	ResolvedAddress string             `json:"resolvedAddress,omitempty"`
}

// ReportByIDHandler returns a report by ID
func (h Report) ReportByIDHandler(w http.ResponseWriter, r *http.Request) {
	repID := mux.Vars(r)["report_id"]

	zap.S().Debugf("report_id: %v", repID)

	rID, err := primitive.ObjectIDFromHex(repID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := h.RDB.FindOne(r.Context(), bson.M{"_id": rID})
	if err != nil {
		config.ErrorStatus("failed to get report by ID", http.StatusNotFound, w, err)
		return
	}

	resp := reportWithEnrichment{Report: *dbResp}
	if dbResp.Details.Latitude != nil && dbResp.Details.Longitude != nil {
		lat, lon := *dbResp.Details.Latitude, *dbResp.Details.Longitude
		if weather, err := h.Geo.CurrentWeather(r.Context(), lat, lon); err == nil {
			resp.Weather = weather
		}
		if addr, err := h.Geo.ResolveAddress(r.Context(), lat, lon); err == nil {
			resp.ResolvedAddress = addr
		}
	}

	b, err := json.Marshal(resp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ReportsHandler returns all reports, paginated, optionally filtered by status
func (h Report) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	limit, skip := getPagination(r)

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		if !models.ValidStatus(status) {
			config.ErrorStatus("unknown status", http.StatusBadRequest, w, fmt.Errorf("status %q", status))
			return
		}
		filter["report.status"] = status
	}

	dbResp, err := h.RDB.Find(r.Context(), filter, &options.FindOptions{Limit: &limit, Skip: &skip})
	if err != nil {
		config.ErrorStatus("failed to get reports", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the data elements exist, if
	// len == 0 then we will just return an empty data object
	if len(dbResp) == 0 {
		dbResp = []models.Report{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ReportsByUserIDHandler returns all reports submitted by the given user
func (h Report) ReportsByUserIDHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	dbResp, err := h.RDB.Find(r.Context(), bson.M{"report.submittedBy": userID})
	if err != nil {
		config.ErrorStatus("failed to get reports by user ID", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Report{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type mapPoint struct {
	ID        string   `json:"id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Status    string   `json:"status"`
	Priority  int      `json:"priority"`
	Type      string   `json:"type"`
}

// ReportsMapHandler returns the lightweight listing used by map views
func (h Report) ReportsMapHandler(w http.ResponseWriter, r *http.Request) {
	dbResp, err := h.RDB.Find(r.Context(), bson.M{"report.latitude": bson.M{"$ne": nil}})
	if err != nil {
		config.ErrorStatus("failed to get reports for map", http.StatusNotFound, w, err)
		return
	}

	points := make([]mapPoint, 0, len(dbResp))
	for _, rep := range dbResp {
		points = append(points, mapPoint{
			ID:        rep.ID.Hex(),
			Latitude:  rep.Details.Latitude,
			Longitude: rep.Details.Longitude,
			Status:    rep.Details.Status,
			Priority:  rep.Details.Priority,
			Type:      rep.Details.Type,
		})
	}

	b, err := json.Marshal(points)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type addNoteRequest struct {
	AuthorID string `json:"authorId"`
	Note     string `json:"note"`
}

// AddReportNoteHandler appends an operator note to a report
func (h Report) AddReportNoteHandler(w http.ResponseWriter, r *http.Request) {
	repID := mux.Vars(r)["report_id"]

	rID, err := primitive.ObjectIDFromHex(repID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req addNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Note == "" {
		config.ErrorStatus("note is required", http.StatusBadRequest, w, errors.New("missing note"))
		return
	}

	if !requireCapability(r.Context(), h.UDB, w, req.AuthorID, models.CapEditReports) {
		return
	}

	note := models.AdminNote{
		ID:        primitive.NewObjectID(),
		Note:      req.Note,
		AuthorID:  req.AuthorID,
		CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
	}

	res, err := h.RDB.UpdateOne(r.Context(),
		bson.M{"_id": rID},
		bson.M{
			"$push": bson.M{"report.adminNotes": note},
			"$inc":  bson.M{"__v": 1},
		},
	)
	if err != nil {
		config.ErrorStatus("failed to add note", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("failed to get report by ID", http.StatusNotFound, w, errors.New("no matching report"))
		return
	}

	b, err := json.Marshal(note)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

type assignContractorRequest struct {
	AssignedBy string `json:"assignedBy"`
	Name       string `json:"name"`
}

// AssignContractorHandler attaches a contractor to a report
func (h Report) AssignContractorHandler(w http.ResponseWriter, r *http.Request) {
	repID := mux.Vars(r)["report_id"]

	rID, err := primitive.ObjectIDFromHex(repID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req assignContractorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Name == "" {
		config.ErrorStatus("contractor name is required", http.StatusBadRequest, w, errors.New("missing name"))
		return
	}

	if !requireCapability(r.Context(), h.UDB, w, req.AssignedBy, models.CapAssignContractors) {
		return
	}

	contractor := models.Contractor{
		Name:       req.Name,
		AssignedAt: primitive.NewDateTimeFromTime(time.Now()),
		AssignedBy: req.AssignedBy,
	}

	res, err := h.RDB.UpdateOne(r.Context(),
		bson.M{"_id": rID},
		bson.M{
			"$set": bson.M{"report.contractor": contractor},
			"$inc": bson.M{"__v": 1},
		},
	)
	if err != nil {
		config.ErrorStatus("failed to assign contractor", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("failed to get report by ID", http.StatusNotFound, w, errors.New("no matching report"))
		return
	}

	if _, err := h.Stats.RefreshOperator(r.Context()); err != nil {
		zap.S().Errorw("failed to refresh operator stats", "error", err)
	}
	Broadcast(models.TopicContractorAssign, models.ContractorAssignEvent{
		ReportID:   rID.Hex(),
		Contractor: contractor,
		AssignedBy: req.AssignedBy,
	})

	b, err := json.Marshal(contractor)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteReportHandler is the administrative escape hatch; it is not
// part of the normal lifecycle and requires manage_users
func (h Report) DeleteReportHandler(w http.ResponseWriter, r *http.Request) {
	repID := mux.Vars(r)["report_id"]

	rID, err := primitive.ObjectIDFromHex(repID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	actorID := r.URL.Query().Get("actorId")
	if !requireCapability(r.Context(), h.UDB, w, actorID, models.CapManageUsers) {
		return
	}

	if err := h.RDB.DeleteOne(r.Context(), bson.M{"_id": rID}); err != nil {
		config.ErrorStatus("failed to delete report", http.StatusInternalServerError, w, err)
		return
	}

	if _, err := h.Stats.RefreshOperator(r.Context()); err != nil {
		zap.S().Errorw("failed to refresh operator stats", "error", err)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"deleted": "` + repID + `"}`))
}

// requireCapability loads the actor and writes a 400/404/403 if the
// capability is missing; actor checks run before any mutation
func requireCapability(ctx context.Context, udb databases.UserDatabase, w http.ResponseWriter, actorID, cap string) bool {
	if actorID == "" {
		config.ErrorStatus("actor id is required", http.StatusBadRequest, w, errors.New("missing actor id"))
		return false
	}
	aID, err := primitive.ObjectIDFromHex(actorID)
	if err != nil {
		config.ErrorStatus("invalid actorId", http.StatusBadRequest, w, err)
		return false
	}
	actor, err := udb.FindOne(ctx, bson.M{"_id": aID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return false
	}
	if !actor.HasCapability(cap) {
		config.ErrorStatus("missing capability", http.StatusForbidden, w, fmt.Errorf("user %s lacks %s", actorID, cap))
		return false
	}
	return true
}

func getPagination(r *http.Request) (limit int64, skip int64) {
	l, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || l <= 0 {
		l = 25
	}
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 0 {
		p = 0
	}
	return int64(l), int64(p * l)
}
