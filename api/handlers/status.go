package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roadwatch/roadwatch-api/config"
	"github.com/roadwatch/roadwatch-api/databases"
	"github.com/roadwatch/roadwatch-api/models"
)

// Status exported for testing purposes
type Status struct {
	RDB      databases.ReportDatabase
	UDB      databases.UserDatabase
	Stats    *Stats
	Notifier *Notifier
}

type statusRequest struct {
	ActorID string `json:"actorId"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
}

// UpdateStatusHandler applies a lifecycle transition. The actor must
// hold edit_reports; the transition must follow the state diagram; the
// first transition into verified/resolved stamps its metadata. All
// checks run before any write.
func (h Status) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	repID := mux.Vars(r)["report_id"]

	rID, err := primitive.ObjectIDFromHex(repID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if !models.ValidStatus(req.Status) {
		config.ErrorStatus("unknown status", http.StatusBadRequest, w, errors.New("status "+req.Status))
		return
	}

	if !requireCapability(r.Context(), h.UDB, w, req.ActorID, models.CapEditReports) {
		return
	}

	for attempt := 0; attempt < maxVoteRetries; attempt++ {
		report, err := h.RDB.FindOne(r.Context(), bson.M{"_id": rID})
		if err != nil {
			config.ErrorStatus("failed to get report by ID", http.StatusNotFound, w, err)
			return
		}

		now := time.Now()
		details := report.Details
		if err := details.ApplyTransition(req.Status, req.ActorID, req.Notes, primitive.NewDateTimeFromTime(now)); err != nil {
			if errors.Is(err, models.ErrInvalidTransition) {
				config.ErrorStatus("invalid status transition", http.StatusConflict, w, err)
			} else {
				config.ErrorStatus("failed to apply transition", http.StatusBadRequest, w, err)
			}
			return
		}
		details.Reprioritize(now)

		res, err := h.RDB.UpdateOne(r.Context(),
			bson.M{"_id": rID, "__v": report.Version},
			bson.M{
				"$set": bson.M{"report": details},
				"$inc": bson.M{"__v": 1},
			},
		)
		if err != nil {
			config.ErrorStatus("failed to update report", http.StatusInternalServerError, w, err)
			return
		}
		if res.ModifiedCount == 0 {
			continue
		}

		report.Details = details
		report.Version++

		// stats and broadcast run after the committed mutation; their
		// failures never roll it back
		h.Stats.RefreshAfterMutation(r.Context(), details.SubmittedBy)
		Broadcast(models.TopicReportStatus, report)
		Broadcast(models.TopicStatusUpdate, models.StatusUpdateEvent{
			ReportID: rID.Hex(),
			Status:   details.Status,
		})
		go h.Notifier.ReportStatusChanged(*report, req.ActorID)

		b, err := json.Marshal(report)
		if err != nil {
			config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(b)
		return
	}

	config.ErrorStatus("report is receiving concurrent updates, try again", http.StatusConflict, w,
		errors.New("version conflict"))
}
