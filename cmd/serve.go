package cmd

import (
	"database/sql"
	"net"

	"github.com/estagio-app/ms-go-auth/app/controller"
	"github.com/estagio-app/ms-go-auth/app/mailer"
	"github.com/estagio-app/ms-go-auth/app/middleware"
	"github.com/estagio-app/ms-go-auth/app/repository"
	"github.com/estagio-app/ms-go-auth/app/service"
	"github.com/estagio-app/ms-go-auth/config"

	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server exposing the auth routes and prometheus metrics.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	authService := newAuthService(cfg, db, service.WithResetMailer(newResetMailer(cfg)))

	startHTTPServer(cfg, authService)
}

// openDatabase forces parseTime so DATE and DATETIME columns scan into
// time.Time regardless of how MYSQL_DSN was written.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	mysqlCfg, err := mysql.ParseDSN(cfg.DSN())
	if err != nil {
		return nil, err
	}
	mysqlCfg.ParseTime = true

	connector, err := mysql.NewConnector(mysqlCfg)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(connector)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newAuthService(cfg *config.Config, db *sql.DB, opts ...service.AuthServiceOption) service.AuthService {
	studentRepo := repository.NewStudentRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	return service.NewAuthService(studentRepo, companyRepo, cfg, opts...)
}

func newResetMailer(cfg *config.Config) service.ResetMailer {
	if !cfg.Mail.Enabled {
		return mailer.NewLogMailer(cfg.Mail.ResetURL)
	}
	if cfg.Mail.ResendAPIKey == "" {
		logrus.Warn("SHOULD_SEND_EMAIL is set but RESEND_API_KEY is empty, reset links will only be logged")
		return mailer.NewLogMailer(cfg.Mail.ResetURL)
	}
	return mailer.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From, cfg.Mail.ResetURL)
}

func newHTTPServer(authService service.AuthService) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	authController := controller.NewAuthController(authService)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	auth := e.Group("/auth")
	auth.POST("/signup/user", authController.SignUpStudent)
	auth.POST("/signup/company", authController.SignUpCompany)
	auth.POST("/signin", authController.SignIn)
	auth.POST("/refresh", authController.Refresh, authMiddleware.RequireRefreshToken)
	auth.POST("/password-reset/request", authController.RequestPasswordReset)
	auth.POST("/password-reset/confirm", authController.ConfirmPasswordReset)
	auth.GET("/me", authController.Me, authMiddleware.RequireAuth)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func startHTTPServer(cfg *config.Config, authService service.AuthService) {
	e := newHTTPServer(authService)
	defer e.Close()

	httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}
