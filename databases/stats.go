package databases

// go generate: mockery --name SubmitterStatsDatabase
// go generate: mockery --name OperatorStatsDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roadwatch/roadwatch-api/models"
)

const (
	submitterStatsName = "submitter_stats"
	operatorStatsName  = "operator_stats"
)

// SubmitterStatsDatabase caches the per-submitter stats projection.
// Documents here are rebuildable from the reports collection at any time.
type SubmitterStatsDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.SubmitterStats, error)
	Upsert(ctx context.Context, stats models.SubmitterStats) error
}

// OperatorStatsDatabase caches the single system-wide operator stats
// document. Same rebuildable-cache rules as SubmitterStatsDatabase.
type OperatorStatsDatabase interface {
	FindOne(ctx context.Context) (*models.OperatorStats, error)
	Upsert(ctx context.Context, stats models.OperatorStats) error
}

type submitterStatsDatabase struct {
	db DatabaseHelper
}

type operatorStatsDatabase struct {
	db DatabaseHelper
}

// NewSubmitterStatsDatabase initializes a new instance of submitter stats database
func NewSubmitterStatsDatabase(db DatabaseHelper) SubmitterStatsDatabase {
	return &submitterStatsDatabase{db: db}
}

// NewOperatorStatsDatabase initializes a new instance of operator stats database
func NewOperatorStatsDatabase(db DatabaseHelper) OperatorStatsDatabase {
	return &operatorStatsDatabase{db: db}
}

func (s *submitterStatsDatabase) FindOne(ctx context.Context, filter interface{}) (*models.SubmitterStats, error) {
	stats := &models.SubmitterStats{}
	err := s.db.Collection(submitterStatsName).FindOne(ctx, filter).Decode(&stats)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *submitterStatsDatabase) Upsert(ctx context.Context, stats models.SubmitterStats) error {
	_, err := s.db.Collection(submitterStatsName).UpdateOne(ctx,
		bson.M{"userId": stats.UserID},
		bson.M{"$set": bson.M{
			"userId":     stats.UserID,
			"submitted":  stats.Submitted,
			"pending":    stats.Pending,
			"verified":   stats.Verified,
			"inProgress": stats.InProgress,
			"resolved":   stats.Resolved,
			"points":     stats.Points,
			"level":      stats.Level,
			"updatedAt":  stats.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (o *operatorStatsDatabase) FindOne(ctx context.Context) (*models.OperatorStats, error) {
	stats := &models.OperatorStats{}
	err := o.db.Collection(operatorStatsName).FindOne(ctx, bson.M{"scope": "global"}).Decode(&stats)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (o *operatorStatsDatabase) Upsert(ctx context.Context, stats models.OperatorStats) error {
	_, err := o.db.Collection(operatorStatsName).UpdateOne(ctx,
		bson.M{"scope": "global"},
		bson.M{"$set": bson.M{
			"scope":             "global",
			"totalManaged":      stats.TotalManaged,
			"resolved":          stats.Resolved,
			"inProgress":        stats.InProgress,
			"pending":           stats.Pending,
			"usersManaged":      stats.UsersManaged,
			"avgResolutionDays": stats.AvgResolutionDays,
			"efficiencyScore":   stats.EfficiencyScore,
			"updatedAt":         stats.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}
