package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/attendance"
	"github.com/trezcool/casebook/core/casefile"
	"github.com/trezcool/casebook/core/roster"
	"github.com/trezcool/casebook/core/student"
	"github.com/trezcool/casebook/core/user"
)

type (
	Deps struct {
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		MailSvc       core.EmailService
		UserSvc       user.ServiceInterface
		StudentSvc    student.ServiceInterface
		CaseFileSvc   casefile.ServiceInterface
		AttendanceSvc attendance.ServiceInterface
		Imports       *roster.Registry
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		address        string
		disableReqLogs bool
		app            *echo.Echo
	}
)

var _ Server = (*server)(nil)

// NewServer wires the API routes. shutdown is called when a handler hits a core.shutdown error.
func NewServer(address string, shutdown func(), deps *Deps) Server {
	s := &server{
		address:        address,
		disableReqLogs: deps.Conf.TestMode,
		app:            echo.New(),
	}
	s.setup(shutdown, deps)
	return s
}

func (s *server) setup(shutdown func(), deps *Deps) {
	conf := deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.disableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HideBanner = conf.TestMode
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, shutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig(conf, false))
	wsJWT := middleware.JWTWithConfig(jwtConfig(conf, true))

	registerUserAPI(v1, jwt, conf, deps.UserSvc, deps.Validate)
	registerStudentAPI(v1, jwt, deps.StudentSvc)
	registerCaseFileAPI(v1, jwt, deps.CaseFileSvc)
	registerAttendanceAPI(v1, jwt, deps.AttendanceSvc)
	registerImportAPI(v1, jwt, wsJWT, deps)
}

func (s *server) Start() error {
	return s.app.Start(s.address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Casebook API!")
}
