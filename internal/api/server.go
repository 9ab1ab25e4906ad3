package api

import (
	"context"
	"errors"

	"github.com/fathima-sithara/realtime-service/internal/apperr"
	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/fathima-sithara/realtime-service/internal/metrics"
	"github.com/fathima-sithara/realtime-service/internal/middleware"
	"github.com/fathima-sithara/realtime-service/internal/service"
	"github.com/fathima-sithara/realtime-service/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

type PresenceReader interface {
	Connections(ctx context.Context, userID string) (int64, error)
}

type UserReader interface {
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
}

type Deps struct {
	Auth     middleware.Authenticator
	Messages *service.MessageService
	Presence PresenceReader
	Users    UserReader
	WS       *ws.Handler
	Log      *zap.SugaredLogger

	// RateLimit is optional and applies to the REST routes only.
	RateLimit middleware.Limiter
}

type Server struct {
	deps Deps
	app  *fiber.App
}

func NewServer(d Deps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(d.Log),
	})
	s := &Server{deps: d, app: app}

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(d.Log))

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	v1 := app.Group("/v1")
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authed := v1.Group("", middleware.Auth(d.Auth))
	authed.Get("/ws", requireUpgrade, websocket.New(s.serveWS))
	if d.RateLimit != nil {
		authed.Use(middleware.RateLimit(d.RateLimit))
	}
	authed.Post("/conversations/:id/messages", s.sendMessage)
	authed.Get("/conversations/:id/messages", s.listMessages)
	authed.Put("/messages/:id", s.editMessage)
	authed.Delete("/messages/:id", s.deleteMessage)
	authed.Get("/presence/:user_id", s.presence)

	return s
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

func (s *Server) Shutdown(ctx context.Context) error { return s.app.ShutdownWithContext(ctx) }

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (s *Server) serveWS(conn *websocket.Conn) {
	p, ok := conn.Locals("user").(*domain.UserProfile)
	if !ok || p == nil {
		_ = conn.Close()
		return
	}
	s.deps.WS.Serve(conn, *p)
}

func errorHandler(log *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		status := apperr.Status(err)
		if status >= fiber.StatusInternalServerError {
			log.Errorw("request failed", "path", c.Path(), "err", err)
		}
		return c.Status(status).JSON(fiber.Map{"error": apperr.Public(err)})
	}
}
