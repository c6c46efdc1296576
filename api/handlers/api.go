package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/roadwatch/roadwatch-api/api"
	"github.com/roadwatch/roadwatch-api/api/scheduler"
	"github.com/roadwatch/roadwatch-api/config"
	"github.com/roadwatch/roadwatch-api/databases"
	"github.com/roadwatch/roadwatch-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	DB        databases.CollectionHelper
	Config    config.Config
	dbHelper  databases.DatabaseHelper
	scheduler *scheduler.Scheduler
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	rdb := databases.NewReportDatabase(a.dbHelper)
	udb := databases.NewUserDatabase(a.dbHelper)
	ssdb := databases.NewSubmitterStatsDatabase(a.dbHelper)
	osdb := databases.NewOperatorStatsDatabase(a.dbHelper)

	stats := &Stats{RDB: rdb, UDB: udb, SSDB: ssdb, OSDB: osdb}
	notifier := &Notifier{UDB: udb}

	report := Report{RDB: rdb, UDB: udb, Stats: stats, Notifier: notifier,
		Analyzer: NewImageAnalyzerFromEnv(), Geo: NewGeoClientFromEnv()}
	vote := Vote{RDB: rdb, Stats: stats}
	status := Status{RDB: rdb, UDB: udb, Stats: stats, Notifier: notifier}
	u := User{DB: udb}
	admin := Admin{UDB: udb}
	images := Images{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// real-time event hub; clients join channels after connecting
	r.HandleFunc("/ws", HandleEventsWebSocket)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/user/create-user", http.HandlerFunc(u.UserCreateHandler)).Methods("POST")
	apiCreate.Handle("/user/check-user", http.HandlerFunc(u.UserCheckEmailHandler)).Methods("POST")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")

	apiCreate.Handle("/admin/login", http.HandlerFunc(admin.AdminLoginHandler)).Methods("POST")
	apiCreate.Handle("/admin/users/{user_id}/capabilities", api.Middleware(http.HandlerFunc(admin.UpdateCapabilitiesHandler))).Methods("PUT")

	apiCreate.Handle("/report", api.Middleware(http.HandlerFunc(report.CreateReportHandler))).Methods("POST")
	apiCreate.Handle("/reports", api.Middleware(http.HandlerFunc(report.ReportsHandler))).Methods("GET")
	apiCreate.Handle("/reports/map", api.Middleware(http.HandlerFunc(report.ReportsMapHandler))).Methods("GET")
	apiCreate.Handle("/reports/user/{user_id}", api.Middleware(http.HandlerFunc(report.ReportsByUserIDHandler))).Methods("GET")
	apiCreate.Handle("/report/{report_id}", api.Middleware(http.HandlerFunc(report.ReportByIDHandler))).Methods("GET")
	apiCreate.Handle("/report/{report_id}", api.Middleware(http.HandlerFunc(report.DeleteReportHandler))).Methods("DELETE")
	apiCreate.Handle("/report/{report_id}/vote", api.Middleware(http.HandlerFunc(vote.VoteHandler))).Methods("PUT")
	apiCreate.Handle("/report/{report_id}/status", api.Middleware(http.HandlerFunc(status.UpdateStatusHandler))).Methods("PUT")
	apiCreate.Handle("/report/{report_id}/notes", api.Middleware(http.HandlerFunc(report.AddReportNoteHandler))).Methods("POST")
	apiCreate.Handle("/report/{report_id}/contractor", api.Middleware(http.HandlerFunc(report.AssignContractorHandler))).Methods("PUT")

	apiCreate.Handle("/stats/user/{user_id}", api.Middleware(http.HandlerFunc(stats.UserStatsHandler))).Methods("GET")
	apiCreate.Handle("/stats/admin", api.Middleware(http.HandlerFunc(stats.AdminStatsHandler))).Methods("GET")

	apiCreate.Handle("/images/signature", api.Middleware(http.HandlerFunc(images.GenerateSignature))).Methods("POST")
	apiCreate.Handle("/images/upload", api.Middleware(http.HandlerFunc(images.UploadImage))).Methods("POST")

	return r
}

// Initialize connects the database, builds the router and starts the
// background scheduler
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("roadwatch-api has connected to the database")

	// initialize api router
	a.initializeRoutes()

	a.scheduler = scheduler.NewScheduler(
		databases.NewReportDatabase(a.dbHelper),
		databases.NewUserDatabase(a.dbHelper),
		databases.NewSubmitterStatsDatabase(a.dbHelper),
		databases.NewOperatorStatsDatabase(a.dbHelper),
		Broadcast,
	)
	a.scheduler.Start()

	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	w.Write(b)
}
