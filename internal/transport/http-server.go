package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/config"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/service"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/supabase"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/transport/views"
)

// StatusUnknownError answers requests the data service failed to serve.
const StatusUnknownError = 520

const (
	ctxClient = "supabase"
	ctxUser   = "user"

	signInPath       = "/sign-in"
	unauthorizedPath = "/sign-in?unauthorized=true"

	censored = "$censored"
)

var Module = fx.Provide(
	NewHTTPServer,
)

var sensitiveFields = []string{"password"}

type HTTPServer struct {
	e       *echo.Echo
	hub     *service.Hub
	factory *supabase.Factory
	logger  *zap.SugaredLogger
}

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, hub *service.Hub, factory *supabase.Factory, logger *zap.SugaredLogger) (*HTTPServer, error) {
	instance, err := New(hub, factory, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				logger.Infow("Starting HTTP server.", "listen", listen)
				if err := instance.e.Start(listen); err != nil && err != http.ErrServerClosed {
					logger.Fatalw("shutting down the server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return instance.e.Shutdown(ctx)
		},
	})

	return instance, nil
}

// New builds the routes without binding a listener.
func New(hub *service.Hub, factory *supabase.Factory, logger *zap.SugaredLogger) (*HTTPServer, error) {
	renderer, err := views.NewRenderer()
	if err != nil {
		return nil, errors.Wrap(err, "load views")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	instance := HTTPServer{
		e:       e,
		hub:     hub,
		factory: factory,
		logger:  logger,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Infow("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method != http.MethodPost
		},
		Handler: func(c echo.Context, reqBody, _ []byte) {
			logger.Debugw("request body", "path", c.Path(), "body", string(censorBody(reqBody)))
		},
	}))
	e.Use(instance.SessionMiddleware)

	e.GET("/", instance.Landing)
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.GET(signInPath, instance.SignInPage)
	e.POST(signInPath, instance.SignIn)
	e.POST("/sign-out", instance.SignOut)

	e.GET("/user", instance.Account, instance.AuthMiddleware)
	e.POST("/user", instance.UpdateAccount, instance.AuthMiddleware)

	e.GET("/user/links", instance.LinkGroups, instance.AuthMiddleware)
	e.POST("/create-link-group", instance.CreateLinkGroup, instance.AuthMiddleware)
	e.POST("/delete-link-group", instance.DeleteLinkGroup, instance.AuthMiddleware)
	e.GET("/user/links/:group", instance.LinkGroup, instance.AuthMiddleware)
	e.POST("/user/links/:group", instance.SaveLinkGroup, instance.AuthMiddleware)

	e.GET("/public/:email/:group", instance.PublicLinkGroup)

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	return &instance, nil
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// SessionMiddleware attaches the request scoped data service client. Cookies
// the client sets are copied to the response before its header is written.
func (s *HTTPServer) SessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cl, headers := s.factory.NewServerClient(c.Request())
		c.Response().Before(func() {
			for _, v := range headers.Values(echo.HeaderSetCookie) {
				c.Response().Header().Add(echo.HeaderSetCookie, v)
			}
		})
		c.Set(ctxClient, cl)
		return next(c)
	}
}

// AuthMiddleware guards every route that needs a signed in user.
func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cl, err := GetClientFromContext(c)
		if err != nil {
			return err
		}
		user, err := cl.GetUser(c.Request().Context())
		if err != nil {
			s.logger.Errorw("get user", "path", c.Path(), "error", err)
			return s.unknownError(c)
		}
		if user == nil {
			return c.Redirect(http.StatusFound, unauthorizedPath)
		}

		c.Set(ctxUser, user)
		return next(c)
	}
}

////////

// respond writes resp as JSON when the caller asks for it and the page
// otherwise, with the same status.
func (s *HTTPServer) respond(c echo.Context, status int, resp interface{}, name string, page views.Page) error {
	if wantsJSON(c) {
		return c.JSON(status, resp)
	}
	page.SignedIn = c.Get(ctxUser) != nil
	return c.Render(status, name, page)
}

func (s *HTTPServer) unknownError(c echo.Context) error {
	msg := service.ErrUnknown.Error()
	return s.respond(c, StatusUnknownError, errorResp(msg, true), views.PageError, views.Page{
		Title: "Error",
		Data:  msg,
	})
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func GetClientFromContext(c echo.Context) (*supabase.Client, error) {
	cl, ok := c.Get(ctxClient).(*supabase.Client)
	if !ok || cl == nil {
		return nil, errors.New("no data service client found in context")
	}
	return cl, nil
}

func GetUserFromContext(c echo.Context) (*supabase.User, error) {
	user, ok := c.Get(ctxUser).(*supabase.User)
	if !ok || user == nil {
		return nil, errors.New("no user found in context")
	}
	return user, nil
}

// GetParam returns the decoded path parameter name.
func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if c.Request().URL.RawPath != "" {
		unescaped, err := url.PathUnescape(value)
		if err != nil {
			return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
		}
		value = unescaped
	}
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return value, nil
}

// censorBody hides sensitive fields of a JSON or form encoded body.
func censorBody(b []byte) []byte {
	body := map[string]interface{}{}
	if err := json.Unmarshal(b, &body); err == nil {
		for _, field := range sensitiveFields {
			if _, ok := body[field]; ok {
				body[field] = censored
			}
		}
		out, err := json.Marshal(body)
		if err != nil {
			return nil
		}
		return out
	}

	form, err := url.ParseQuery(string(b))
	if err != nil {
		return b
	}
	changed := false
	for _, field := range sensitiveFields {
		if form.Has(field) {
			form.Set(field, censored)
			changed = true
		}
	}
	if !changed {
		return b
	}
	return []byte(form.Encode())
}
