package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roadwatch/roadwatch-api/config"
	"github.com/roadwatch/roadwatch-api/databases"
	"github.com/roadwatch/roadwatch-api/models"
)

// maxVoteRetries bounds the optimistic-concurrency retry loop on a
// single report document
const maxVoteRetries = 3

// Vote exported for testing purposes
type Vote struct {
	RDB   databases.ReportDatabase
	Stats *Stats
}

type voteRequest struct {
	UserID    string `json:"userId"`
	Direction string `json:"direction"`
}

// VoteHandler casts or replaces a user's vote on a report. Any
// authenticated user may vote, including the report's own submitter.
// The remove-then-insert step is applied atomically per document via a
// versioned update; concurrent votes on the same report retry rather
// than silently losing one.
func (h Vote) VoteHandler(w http.ResponseWriter, r *http.Request) {
	repID := mux.Vars(r)["report_id"]

	rID, err := primitive.ObjectIDFromHex(repID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.UserID == "" {
		config.ErrorStatus("userId is required", http.StatusBadRequest, w, errors.New("missing userId"))
		return
	}
	if !models.ValidDirection(req.Direction) {
		config.ErrorStatus("unknown vote direction", http.StatusBadRequest, w, fmt.Errorf("direction %q", req.Direction))
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

		// remove any existing vote by this user, then insert the new one
		votes := make([]models.Vote, 0, len(details.Votes)+1)
		for _, v := range details.Votes {
			if v.UserID != req.UserID {
				votes = append(votes, v)
			}
		}
		votes = append(votes, models.Vote{
			UserID:    req.UserID,
			Direction: req.Direction,
			CastAt:    primitive.NewDateTimeFromTime(now),
		})
		details.Votes = votes
		details.Reprioritize(now)
		details.UpdatedAt = primitive.NewDateTimeFromTime(now)

		res, err := h.RDB.UpdateOne(r.Context(),
			bson.M{"_id": rID, "__v": report.Version},
			bson.M{
				"$set": bson.M{
					"report.votes":     details.Votes,
					"report.priority":  details.Priority,
					"report.updatedAt": details.UpdatedAt,
				},
				"$inc": bson.M{"__v": 1},
			},
		)
		if err != nil {
			config.ErrorStatus("failed to update report", http.StatusInternalServerError, w, err)
			return
		}
		if res.ModifiedCount == 0 {
			// lost the race against a concurrent mutation, re-read and retry
			continue
		}

		report.Details = details
		report.Version++

		h.Stats.RefreshAfterMutation(r.Context(), details.SubmittedBy)

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
