package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roadwatch/roadwatch-api/databases"
	"github.com/roadwatch/roadwatch-api/databases/mocks"
	"github.com/roadwatch/roadwatch-api/models"
)

type mockDatabaseHelper struct {
	mock.Mock
}

func (m *mockDatabaseHelper) Client() databases.ClientHelper {
	ret := m.Called()
	if ret.Get(0) == nil {
		return nil
	}
	return ret.Get(0).(databases.ClientHelper)
}

func (m *mockDatabaseHelper) Collection(name string) databases.CollectionHelper {
	ret := m.Called(name)
	if ret.Get(0) == nil {
		return nil
	}
	return ret.Get(0).(databases.CollectionHelper)
}

func TestScheduler_RefreshPrioritiesAppliesAgeBonus(t *testing.T) {
	db := &mockDatabaseHelper{}
	reportsConn := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	tenDaysAgo := primitive.NewDateTimeFromTime(time.Now().Add(-10 * 24 * time.Hour))
	cursor.On("All", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.Report)
		*arg = []models.Report{
			{
				ID:      primitive.NewObjectID(),
				Version: 2,
				Details: models.ReportDetails{
					Status:        models.StatusPending,
					Severity:      models.SeverityLow,
					TrafficImpact: "none",
					SafetyRisk:    "none",
					Priority:      1, // stale: scored before the 7-day age bonus applied
					CreatedAt:     tenDaysAgo,
				},
			},
		}
	})
	reportsConn.On("Find", mock.Anything, mock.Anything).Return(cursor, nil)
	reportsConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil).
		Once()
	db.On("Collection", "reports").Return(reportsConn)

	s := NewScheduler(
		databases.NewReportDatabase(db),
		nil, nil, nil, nil,
	)
	s.RefreshPriorities()

	reportsConn.AssertExpectations(t)
}

func TestScheduler_RefreshPrioritiesSkipsUnchanged(t *testing.T) {
	db := &mockDatabaseHelper{}
	reportsConn := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("All", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.Report)
		*arg = []models.Report{
			{
				ID: primitive.NewObjectID(),
				Details: models.ReportDetails{
					Status:        models.StatusPending,
					Severity:      models.SeverityLow,
					TrafficImpact: "none",
					SafetyRisk:    "none",
					Priority:      1,
					CreatedAt:     primitive.NewDateTimeFromTime(time.Now()),
				},
			},
		}
	})
	reportsConn.On("Find", mock.Anything, mock.Anything).Return(cursor, nil)
	db.On("Collection", "reports").Return(reportsConn)

	s := NewScheduler(
		databases.NewReportDatabase(db),
		nil, nil, nil, nil,
	)
	s.RefreshPriorities()

	reportsConn.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_ReconcileOperatorStatsBroadcasts(t *testing.T) {
	db := &mockDatabaseHelper{}
	reportsConn := &mocks.CollectionHelper{}
	usersConn := &mocks.CollectionHelper{}
	statsConn := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("All", mock.Anything, mock.Anything).Return(nil)
	reportsConn.On("Find", mock.Anything, mock.Anything).Return(cursor, nil)
	usersConn.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(4), nil)
	statsConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{}, nil)
	db.On("Collection", "reports").Return(reportsConn)
	db.On("Collection", "users").Return(usersConn)
	db.On("Collection", "operator_stats").Return(statsConn)

	var gotTopic string
	s := NewScheduler(
		databases.NewReportDatabase(db),
		databases.NewUserDatabase(db),
		nil,
		databases.NewOperatorStatsDatabase(db),
		func(topic string, data interface{}) { gotTopic = topic },
	)
	s.ReconcileOperatorStats()

	if gotTopic != models.TopicAdminStatsUpdate {
		t.Errorf("expected %q broadcast, got %q", models.TopicAdminStatsUpdate, gotTopic)
	}
	statsConn.AssertExpectations(t)
}
