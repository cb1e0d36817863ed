package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/fleetworks/workshop-backend-go/internal/config"
	appHTTP "github.com/fleetworks/workshop-backend-go/internal/handler/http"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/cron"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/database"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/jwt"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/locker"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/schema"
	"github.com/fleetworks/workshop-backend-go/internal/repository/postgresql"
	jobcardService "github.com/fleetworks/workshop-backend-go/internal/service/jobcard"
	shiftService "github.com/fleetworks/workshop-backend-go/internal/service/shift"
	"github.com/fleetworks/workshop-backend-go/internal/service/status"
	timerService "github.com/fleetworks/workshop-backend-go/internal/service/timer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Schema capabilities are probed once; repositories branch on the
	// resolved value instead of re-checking per request.
	caps := schema.Detect(context.Background(), db.Pool)
	if caps.ShiftTable == "" {
		fmt.Println("No supported shift table found; shift operations will fail with SCHEMA_MISMATCH")
	}

	shiftRepo := postgresql.NewShiftRepository(db, caps)
	segmentRepo := postgresql.NewWorkSegmentRepository(db)
	assignmentRepo := postgresql.NewAssignmentRepository(db)
	jobCardRepo := postgresql.NewJobCardRepository(db)

	jwtSvc := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	timerLock := locker.NewMemoryLocker()
	engine := status.NewEngine(jobCardRepo, assignmentRepo, &status.LogNotifier{Logger: logger})

	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return postgresql.WithTransaction(ctx, db, fn)
	}

	shiftSvc := shiftService.NewShiftService(shiftRepo)
	timerSvc := timerService.NewTimerService(
		segmentRepo,
		assignmentRepo,
		jobCardRepo,
		shiftRepo,
		timerLock,
		engine,
		txRunner,
		cfg.Workflow,
		logger,
	)
	jobCardSvc := jobcardService.NewJobCardService(
		jobCardRepo,
		assignmentRepo,
		segmentRepo,
		engine,
		txRunner,
	)

	shiftHandler := appHTTP.NewShiftHandler(shiftSvc)
	timerHandler := appHTTP.NewTimerHandler(timerSvc)
	jobCardHandler := appHTTP.NewJobCardHandler(jobCardSvc)

	scheduler := cron.NewScheduler()
	cron.NewShiftJobs(shiftRepo, cfg.Workflow).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		cfg,
		jwtSvc,
		shiftHandler,
		timerHandler,
		jobCardHandler,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
