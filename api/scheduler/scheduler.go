package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/roadwatch/roadwatch-api/databases"
	"github.com/roadwatch/roadwatch-api/models"
)

// Scheduler handles periodic background jobs: nightly priority refresh
// and operator stats reconciliation
type Scheduler struct {
	cron      *cron.Cron
	RDB       databases.ReportDatabase
	UDB       databases.UserDatabase
	SSDB      databases.SubmitterStatsDatabase
	OSDB      databases.OperatorStatsDatabase
	broadcast func(topic string, data interface{})
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	rDB databases.ReportDatabase,
	uDB databases.UserDatabase,
	ssDB databases.SubmitterStatsDatabase,
	osDB databases.OperatorStatsDatabase,
	broadcast func(topic string, data interface{}),
) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		RDB:       rDB,
		UDB:       uDB,
		SSDB:      ssDB,
		OSDB:      osDB,
		broadcast: broadcast,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Recompute age-based priority bonuses for open reports nightly at 2 AM UTC
	_, err := s.cron.AddFunc("0 2 * * *", s.RefreshPriorities)
	if err != nil {
		zap.S().Errorw("failed to register priority refresh job", "error", err)
	}

	// Reconcile the operator stats cache hourly, in case a best-effort
	// refresh after a mutation was lost
	_, err = s.cron.AddFunc("0 * * * *", s.ReconcileOperatorStats)
	if err != nil {
		zap.S().Errorw("failed to register stats reconciliation job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("roadwatch scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("roadwatch scheduler stopped")
}

// RefreshPriorities recomputes the priority of every open report. Votes
// and severity are rescored on write, but the age bonus only moves as
// time passes, so open reports are swept here.
func (s *Scheduler) RefreshPriorities() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	zap.S().Info("running nightly priority refresh")

	filter := bson.M{"report.status": bson.M{"$in": []string{
		models.StatusPending, models.StatusVerified, models.StatusInProgress,
	}}}

	reports, err := s.RDB.Find(ctx, filter)
	if err != nil {
		zap.S().Errorw("failed to load open reports for priority refresh", "error", err)
		return
	}

	now := time.Now()
	updated := 0
	for _, report := range reports {
		previous := report.Details.Priority
		report.Details.Reprioritize(now)
		if report.Details.Priority == previous {
			continue
		}

		_, err := s.RDB.UpdateOne(ctx,
			bson.M{"_id": report.ID, "__v": report.Version},
			bson.M{
				"$set": bson.M{
					"report.priority":  report.Details.Priority,
					"report.updatedAt": primitive.NewDateTimeFromTime(now),
				},
				"$inc": bson.M{"__v": 1},
			},
		)
		if err != nil {
			// concurrent writers rescore on their own, skip
			zap.S().Warnw("failed to refresh report priority", "error", err, "reportId", report.ID.Hex())
			continue
		}
		updated++
	}

	zap.S().Infow("priority refresh complete", "open", len(reports), "updated", updated)
}

// ReconcileOperatorStats rebuilds the operator stats cache from the
// reports collection and announces the refresh to admin dashboards.
func (s *Scheduler) ReconcileOperatorStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	reports, err := s.RDB.Find(ctx, bson.M{})
	if err != nil {
		zap.S().Errorw("failed to load reports for stats reconciliation", "error", err)
		return
	}

	userCount, err := s.UDB.CountDocuments(ctx, bson.M{})
	if err != nil {
		zap.S().Errorw("failed to count users for stats reconciliation", "error", err)
		return
	}

	stats := models.ComputeOperatorStats(reports, userCount, primitive.NewDateTimeFromTime(time.Now()))
	if err := s.OSDB.Upsert(ctx, stats); err != nil {
		zap.S().Errorw("failed to store reconciled operator stats", "error", err)
		return
	}

	if s.broadcast != nil {
		s.broadcast(models.TopicAdminStatsUpdate, struct{}{})
	}

	zap.S().Infow("operator stats reconciled", "totalManaged", stats.TotalManaged)
}
