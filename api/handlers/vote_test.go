package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roadwatch/roadwatch-api/api/handlers"
	"github.com/roadwatch/roadwatch-api/databases"
	"github.com/roadwatch/roadwatch-api/databases/mocks"
	"github.com/roadwatch/roadwatch-api/models"
)

func TestVote_VoteHandlerBadID(t *testing.T) {
	body := bytes.NewBufferString(`{"userId": "user1", "direction": "up"}`)
	req, err := http.NewRequest("PUT", "/api/v1/report/1234/vote", body)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"report_id": "1234"})
	req.Header.Set("Authorization", "Bearer abc123")

	h := handlers.Vote{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(h.VoteHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
}

func TestVote_VoteHandlerUnknownDirection(t *testing.T) {
	body := bytes.NewBufferString(`{"userId": "user1", "direction": "sideways"}`)
	req, err := http.NewRequest("PUT", "/api/v1/report/608cafe595eb9dc05379b7f4/vote", body)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"report_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	h := handlers.Vote{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(h.VoteHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "unknown vote direction") {
		t.Errorf("handler returned unexpected body: got %v", rr.Body.String())
	}
}

func TestVote_VoteHandlerReplacesExistingVote(t *testing.T) {
	body := bytes.NewBufferString(`{"userId": "user1", "direction": "down"}`)
	req, err := http.NewRequest("PUT", "/api/v1/report/608cafe595eb9dc05379b7f4/vote", body)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"report_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	db := &MockDatabaseHelper{}
	reportsConn := &mocks.CollectionHelper{}
	usersConn := &mocks.CollectionHelper{}
	singleResultHelper := &mocks.SingleResultHelper{}
	cursor := &mocks.CursorHelper{}

	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Report)
		(*arg).Version = 3
		(*arg).Details.SubmittedBy = "user2"
		(*arg).Details.Severity = models.SeverityLow
		(*arg).Details.Status = models.StatusPending
		(*arg).Details.Votes = []models.Vote{{UserID: "user1", Direction: models.VoteUp}}
	})
	cursor.On("All", mock.Anything, mock.Anything).Return(nil)
	reportsConn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	reportsConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	reportsConn.On("Find", mock.Anything, mock.Anything).Return(cursor, nil)
	db.On("Collection", "reports").Return(reportsConn)
	db.On("Collection", "users").Return(usersConn)
	allowStatsRefresh(db, usersConn)

	h := handlers.Vote{
		RDB:   databases.NewReportDatabase(db),
		Stats: statsForTest(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(h.VoteHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var updated models.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(updated.Details.Votes) != 1 {
		t.Fatalf("re-voting must replace, not append: got %d votes", len(updated.Details.Votes))
	}
	if updated.Details.Votes[0].Direction != models.VoteDown {
		t.Errorf("expected replaced vote to be down, got %v", updated.Details.Votes[0].Direction)
	}
	if updated.Version != 4 {
		t.Errorf("expected version bump to 4, got %v", updated.Version)
	}
}

func TestVote_VoteHandlerVersionConflict(t *testing.T) {
	body := bytes.NewBufferString(`{"userId": "user1", "direction": "up"}`)
	req, err := http.NewRequest("PUT", "/api/v1/report/608cafe595eb9dc05379b7f4/vote", body)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"report_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	db := &MockDatabaseHelper{}
	reportsConn := &mocks.CollectionHelper{}
	singleResultHelper := &mocks.SingleResultHelper{}

	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Report)
		(*arg).Version = 3
		(*arg).Details.Status = models.StatusPending
	})
	reportsConn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	// every attempt loses the race
	reportsConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 0, ModifiedCount: 0}, nil)
	db.On("Collection", "reports").Return(reportsConn)

	h := handlers.Vote{
		RDB: databases.NewReportDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(h.VoteHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "report is receiving concurrent updates, try again", Error: "version conflict"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}
