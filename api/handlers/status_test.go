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

func TestStatus_UpdateStatusHandlerUnknownStatus(t *testing.T) {
	body := bytes.NewBufferString(`{"actorId": "60b0c9f1e2a4b338f0e5a111", "status": "paved-over"}`)
	req, err := http.NewRequest("PUT", "/api/v1/report/608cafe595eb9dc05379b7f4/status", body)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"report_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	h := handlers.Status{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(h.UpdateStatusHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "unknown status") {
		t.Errorf("handler returned unexpected body: got %v", rr.Body.String())
	}
}

func TestStatus_UpdateStatusHandlerMissingCapability(t *testing.T) {
	body := bytes.NewBufferString(`{"actorId": "608cafe595eb9dc05379cccc", "status": "verified"}`)
	req, err := http.NewRequest("PUT", "/api/v1/report/608cafe595eb9dc05379b7f4/status", body)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"report_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	db := &MockDatabaseHelper{}
	usersConn := &mocks.CollectionHelper{}
	singleResultHelper := &mocks.SingleResultHelper{}

	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).ID = "608cafe595eb9dc05379cccc"
		(*arg).Details.Capabilities = []string{}
	})
	usersConn.On("FindOne", mock.Anything, mock.MatchedBy(objectIDFilter)).Return(singleResultHelper)
	db.On("Collection", "users").Return(usersConn)

	h := handlers.Status{
		UDB: databases.NewUserDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(h.UpdateStatusHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusForbidden {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusForbidden)
	}
	if !strings.Contains(rr.Body.String(), "missing capability") {
		t.Errorf("handler returned unexpected body: got %v", rr.Body.String())
	}
}

func TestStatus_UpdateStatusHandlerInvalidTransition(t *testing.T) {
	body := bytes.NewBufferString(`{"actorId": "60b0c9f1e2a4b338f0e5a111", "status": "verified"}`)
	req, err := http.NewRequest("PUT", "/api/v1/report/608cafe595eb9dc05379b7f4/status", body)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"report_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	db := &MockDatabaseHelper{}
	reportsConn := &mocks.CollectionHelper{}
	usersConn := &mocks.CollectionHelper{}
	userResult := &mocks.SingleResultHelper{}
	reportResult := &mocks.SingleResultHelper{}

	userResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).ID = "60b0c9f1e2a4b338f0e5a111"
		(*arg).Details.Capabilities = []string{models.CapEditReports}
	})
	reportResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Report)
		(*arg).Details.Status = models.StatusResolved
	})
	usersConn.On("FindOne", mock.Anything, mock.MatchedBy(objectIDFilter)).Return(userResult)
	reportsConn.On("FindOne", mock.Anything, mock.Anything).Return(reportResult)
	db.On("Collection", "users").Return(usersConn)
	db.On("Collection", "reports").Return(reportsConn)

	h := handlers.Status{
		RDB: databases.NewReportDatabase(db),
		UDB: databases.NewUserDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(h.UpdateStatusHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
	}
	if !strings.Contains(rr.Body.String(), "invalid status transition") {
		t.Errorf("handler returned unexpected body: got %v", rr.Body.String())
	}
}

func TestStatus_UpdateStatusHandlerVerifiedStampsMetadata(t *testing.T) {
	body := bytes.NewBufferString(`{"actorId": "60b0c9f1e2a4b338f0e5a111", "status": "verified", "notes": "confirmed on site"}`)
	req, err := http.NewRequest("PUT", "/api/v1/report/608cafe595eb9dc05379b7f4/status", body)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"report_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	db := &MockDatabaseHelper{}
	reportsConn := &mocks.CollectionHelper{}
	usersConn := &mocks.CollectionHelper{}
	userResult := &mocks.SingleResultHelper{}
	reportResult := &mocks.SingleResultHelper{}
	cursor := &mocks.CursorHelper{}

	userResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).ID = "60b0c9f1e2a4b338f0e5a111"
		(*arg).Details.Capabilities = []string{models.CapEditReports}
	})
	reportResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Report)
		(*arg).Version = 1
		(*arg).Details.SubmittedBy = "user2"
		(*arg).Details.Status = models.StatusPending
		(*arg).Details.Severity = models.SeverityMedium
	})
	cursor.On("All", mock.Anything, mock.Anything).Return(nil)
	usersConn.On("FindOne", mock.Anything, mock.MatchedBy(objectIDFilter)).Return(userResult)
	reportsConn.On("FindOne", mock.Anything, mock.Anything).Return(reportResult)
	reportsConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	reportsConn.On("Find", mock.Anything, mock.Anything).Return(cursor, nil)
	db.On("Collection", "users").Return(usersConn)
	db.On("Collection", "reports").Return(reportsConn)
	allowStatsRefresh(db, usersConn)

	h := handlers.Status{
		RDB:   databases.NewReportDatabase(db),
		UDB:   databases.NewUserDatabase(db),
		Stats: statsForTest(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(h.UpdateStatusHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var updated models.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if updated.Details.Status != models.StatusVerified {
		t.Errorf("expected verified status, got %v", updated.Details.Status)
	}
	if updated.Details.Verification == nil {
		t.Fatal("expected verification stamp")
	}
	if updated.Details.Verification.VerifierID != "60b0c9f1e2a4b338f0e5a111" {
		t.Errorf("expected verifier id, got %v", updated.Details.Verification.VerifierID)
	}
	if updated.Details.Verification.Notes != "confirmed on site" {
		t.Errorf("expected verification notes, got %v", updated.Details.Verification.Notes)
	}
}
