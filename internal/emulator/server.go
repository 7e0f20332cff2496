// Package emulator serves the subset of the hosted auth and rest API that the
// application uses, backed by gorm. It exists for local development and tests.
package emulator

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/config"
)

var Module = fx.Provide(
	NewGormClient,
	NewHTTPServer,
)

type (
	Options struct {
		AnonKey    string
		JWTSecret  string
		TokenTTL   time.Duration
		BcryptCost int
	}

	Server struct {
		db         *gorm.DB
		echo       *echo.Echo
		logger     *zap.SugaredLogger
		anonKey    string
		jwtSecret  []byte
		tokenTTL   time.Duration
		bcryptCost int
		now        func() time.Time

		mu     sync.Mutex
		faults map[string]int
	}
)

func New(db *gorm.DB, opts Options, logger *zap.SugaredLogger) *Server {
	if opts.TokenTTL == 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	s := &Server{
		db:         db,
		echo:       echo.New(),
		logger:     logger,
		anonKey:    opts.AnonKey,
		jwtSecret:  []byte(opts.JWTSecret),
		tokenTTL:   opts.TokenTTL,
		bcryptCost: opts.BcryptCost,
		now:        time.Now,
		faults:     make(map[string]int),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	auth := e.Group("/auth/v1")
	auth.POST("/signup", s.Signup)
	auth.POST("/token", s.Token)
	auth.GET("/user", s.GetUser)
	auth.POST("/logout", s.Logout)

	rest := e.Group("/rest/v1")
	rest.GET("/:table", s.Rest)
	rest.POST("/:table", s.Rest)
	rest.PATCH("/:table", s.Rest)
	rest.DELETE("/:table", s.Rest)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, restError{Message: http.StatusText(he.Code)})
			return
		}
		s.logger.Errorw("emulator request failed", "path", c.Path(), "error", err)
		_ = c.JSON(http.StatusInternalServerError, restError{Code: "XX000", Message: err.Error()})
	}

	return s
}

// NewHTTPServer runs the emulator for the lifetime of the fx app and seeds the
// configured user.
func NewHTTPServer(lc fx.Lifecycle, cfg *config.EmulatorConfig, db *gorm.DB, logger *zap.SugaredLogger) (*Server, error) {
	instance := New(db, Options{
		AnonKey:   cfg.AnonKey,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
	}, logger)

	if cfg.SeedEmail != "" {
		if _, err := instance.Register(cfg.SeedEmail, cfg.SeedPassword); err != nil && err != ErrUserAlreadyExists {
			return nil, err
		}
		logger.Infow("seed user ready", "email", cfg.SeedEmail)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				logger.Infow("Starting emulator.", "listen", listen)
				if err := instance.echo.Start(listen); err != nil && err != http.ErrServerClosed {
					logger.Fatalw("shutting down the emulator", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping emulator.")
			return instance.echo.Shutdown(ctx)
		},
	})

	return instance, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// SetFault makes every rest call on table answer with status until cleared
// with status 0.
func (s *Server) SetFault(table string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.faults, table)
		return
	}
	s.faults[table] = status
}

func (s *Server) fault(table string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.faults[table]
	return status, ok
}

func (s *Server) DB() *gorm.DB {
	return s.db
}
