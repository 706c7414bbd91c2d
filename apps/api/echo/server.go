package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/budget"
	"github.com/kymanga/ruzuku/core/funding"
	"github.com/kymanga/ruzuku/core/scholarship"
	"github.com/kymanga/ruzuku/core/user"
)

type (
	Options struct {
		Addr           string
		DisableReqLogs bool

		UserSvc        user.Service
		BudgetSvc      budget.Service
		FundingSvc     funding.Service
		ScholarshipSvc scholarship.Service
		Logger         core.Logger
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan struct{}
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan struct{}, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerBudgetAPI(v1, jwt, s.opts.BudgetSvc, s.opts.UserSvc)
	registerFundingAPI(v1, jwt, s.opts.FundingSvc, s.opts.UserSvc)
	registerScholarshipAPI(v1, jwt, s.opts.ScholarshipSvc, s.opts.UserSvc)
}

// signalShutdown is called by the error handler when an unrecoverable
// integrity error is caught.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- struct{}{}:
	default:
	}
}

// Shutdown returns the channel signalled on unrecoverable errors.
func (s *server) Shutdown() <-chan struct{} { return s.shutdown }

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Addr))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
