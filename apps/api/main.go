package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/kymanga/ruzuku/apps/api/echo"
	"github.com/kymanga/ruzuku/apps/api/scheduler"
	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/budget"
	"github.com/kymanga/ruzuku/core/funding"
	"github.com/kymanga/ruzuku/core/scholarship"
	"github.com/kymanga/ruzuku/core/user"
	emailsvc "github.com/kymanga/ruzuku/services/email"
	logsvc "github.com/kymanga/ruzuku/services/logger"
	metricsvc "github.com/kymanga/ruzuku/services/metrics"
	pushsvc "github.com/kymanga/ruzuku/services/push"
	"github.com/kymanga/ruzuku/storage/database"
	"github.com/kymanga/ruzuku/storage/database/postgres"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(logger, err)
	defer func() { _ = db.Close() }()

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	pushSvc := pushsvc.NewConsoleService()
	metrics := metricsvc.NewPrometheusMetrics()

	usrSvc := user.NewService(postgres.NewUserRepository(db), mailSvc)
	budgetSvc := budget.NewService(postgres.NewBudgetRepository(db))
	fundingSvc := funding.NewService(postgres.NewFundingRepository(db), budgetSvc, usrSvc, mailSvc, pushSvc, logger, metrics)
	scholarshipSvc := scholarship.NewService(postgres.NewScholarshipRepository(db), budgetSvc, usrSvc, mailSvc, pushSvc, logger, metrics)

	// periodic jobs
	sched := scheduler.New(budgetSvc, logger)
	errAndDie(logger, sched.Start())
	defer sched.Stop()

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:           core.Conf.Server.Address(),
			UserSvc:        usrSvc,
			BudgetSvc:      budgetSvc,
			FundingSvc:     fundingSvc,
			ScholarshipSvc: scholarshipSvc,
			Logger:         logger,
		},
	)

	go app.Start()

	// graceful shutdown on SIGINT|SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("stopping server", err)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
