package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/roadwatch/roadwatch-api/config"
	"github.com/roadwatch/roadwatch-api/databases"
	"github.com/roadwatch/roadwatch-api/models"
)

// Stats recomputes the derived submitter and operator projections from
// the reports collection. The cached documents are never treated as a
// source of truth: every read path recomputes before serving.
type Stats struct {
	RDB  databases.ReportDatabase
	UDB  databases.UserDatabase
	SSDB databases.SubmitterStatsDatabase
	OSDB databases.OperatorStatsDatabase
}

// RefreshSubmitter recomputes one submitter's stats from their current
// reports, persists the snapshot and announces the change.
func (s *Stats) RefreshSubmitter(ctx context.Context, userID string) (*models.SubmitterStats, error) {
	reports, err := s.RDB.Find(ctx, bson.M{"report.submittedBy": userID})
	if err != nil {
		return nil, err
	}

	stats := models.ComputeSubmitterStats(userID, reports, primitive.NewDateTimeFromTime(time.Now()))
	if err := s.SSDB.Upsert(ctx, stats); err != nil {
		return nil, err
	}

	Broadcast(models.TopicUserStatsUpdate, models.UserStatsUpdateEvent{UserID: userID})
	return &stats, nil
}

// RefreshOperator recomputes the system-wide stats over all reports and
// the user directory, persists the snapshot and announces the change.
func (s *Stats) RefreshOperator(ctx context.Context) (*models.OperatorStats, error) {
	reports, err := s.RDB.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	userCount, err := s.UDB.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	stats := models.ComputeOperatorStats(reports, userCount, primitive.NewDateTimeFromTime(time.Now()))
	if err := s.OSDB.Upsert(ctx, stats); err != nil {
		return nil, err
	}

	Broadcast(models.TopicAdminStatsUpdate, struct{}{})
	return &stats, nil
}

// RefreshAfterMutation is the best-effort recompute hook used by every
// mutating handler. The underlying mutation has already committed, so
// failures are logged and left for the next recompute-on-read to heal.
func (s *Stats) RefreshAfterMutation(ctx context.Context, submitterID string) {
	if _, err := s.RefreshSubmitter(ctx, submitterID); err != nil {
		zap.S().Errorw("failed to refresh submitter stats",
			"userId", submitterID,
			"error", err,
		)
	}
	if _, err := s.RefreshOperator(ctx); err != nil {
		zap.S().Errorw("failed to refresh operator stats", "error", err)
	}
}

// UserStatsHandler returns a submitter's stats, recomputed on read
func (s Stats) UserStatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	stats, err := s.RefreshSubmitter(r.Context(), userID)
	if err != nil {
		config.ErrorStatus("failed to compute user stats", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(stats)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AdminStatsHandler returns the operator dashboard stats, recomputed on read
func (s Stats) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.RefreshOperator(r.Context())
	if err != nil {
		config.ErrorStatus("failed to compute operator stats", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(stats)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
