package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/dispatch-console/internal/console"
	"github.com/kursadbilgin/dispatch-console/internal/observability"
	"github.com/kursadbilgin/dispatch-console/internal/render"
	"go.uber.org/zap"
)

const (
	SessionCookieName = "console_session"
	sessionCookieTTL  = 7 * 24 * time.Hour
	consoleLocalKey   = "console"
)

type SessionRegistry interface {
	Get(ctx context.Context, sessionID string) (*console.Console, bool, error)
}

type ConsoleHandler struct {
	registry SessionRegistry
	renderer *render.Renderer
	logger   *zap.Logger
}

func NewConsoleHandler(registry SessionRegistry, renderer *render.Renderer, logger *zap.Logger) (*ConsoleHandler, error) {
	if registry == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleHandler{registry: registry, renderer: renderer, logger: logger}, nil
}

func RegisterConsoleRoutes(router fiber.Router, registry SessionRegistry, renderer *render.Renderer, logger *zap.Logger) error {
	h, err := NewConsoleHandler(registry, renderer, logger)
	if err != nil {
		return err
	}

	router.Get("/", h.Session, h.Page)
	router.Get("/list", h.Session, h.List)
	router.Post("/refresh", h.Session, h.Refresh)
	router.Post("/filter", h.Session, h.SetFilter)
	router.Post("/notifications", h.Session, h.CreateNotification)
	router.Get("/notifications/:id", h.Session, h.ShowDetails)
	router.Post("/details/close", h.Session, h.CloseDetails)
	router.Get("/notifications/:id/cancel", h.Session, h.ConfirmCancel)
	router.Post("/notifications/:id/cancel", h.Session, h.CancelNotification)

	return nil
}

// Session resolves the console for the session cookie, creating one on first visit.
func (h *ConsoleHandler) Session(c *fiber.Ctx) error {
	requested := c.Cookies(SessionCookieName)

	con, _, err := h.registry.Get(c.UserContext(), requested)
	if err != nil {
		return err
	}

	if con.SessionID() != requested {
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookieName,
			Value:    con.SessionID(),
			Path:     "/",
			Expires:  time.Now().Add(sessionCookieTTL),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	c.SetUserContext(observability.WithSessionID(c.UserContext(), con.SessionID()))
	c.Locals(consoleLocalKey, con)
	return c.Next()
}

func (h *ConsoleHandler) Page(c *fiber.Ctx) error {
	con := consoleFrom(c)
	return h.html(c, func(buf *bytes.Buffer) error {
		return h.renderer.Page(buf, con.View(c.UserContext()))
	})
}

// List renders the list panel. A browser polling the panel is a live session, so
// this is where the periodic refresher starts.
func (h *ConsoleHandler) List(c *fiber.Ctx) error {
	con := consoleFrom(c)
	if err := con.Initialize(c.UserContext()); err != nil {
		observability.WithContextLogger(h.logger, c.UserContext()).Warn("console initialization failed", zap.Error(err))
	}
	return h.html(c, func(buf *bytes.Buffer) error {
		return h.renderer.List(buf, con.View(c.UserContext()))
	})
}

func (h *ConsoleHandler) Refresh(c *fiber.Ctx) error {
	// A failed load is surfaced through the list state.
	_ = consoleFrom(c).Load(c.UserContext())
	return redirectHome(c)
}

func (h *ConsoleHandler) SetFilter(c *fiber.Ctx) error {
	if err := consoleFrom(c).SetFilter(c.UserContext(), c.FormValue("status")); err != nil {
		return err
	}
	return redirectHome(c)
}

func (h *ConsoleHandler) CreateNotification(c *fiber.Ctx) error {
	var form console.CreateForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form body")
	}

	// Failures are reported with a banner and the form is kept as the draft.
	_ = consoleFrom(c).Create(c.UserContext(), form)
	return redirectHome(c)
}

func (h *ConsoleHandler) ShowDetails(c *fiber.Ctx) error {
	id, err := notificationID(c)
	if err != nil {
		return err
	}
	_ = consoleFrom(c).ShowDetails(c.UserContext(), id)
	return redirectHome(c)
}

func (h *ConsoleHandler) CloseDetails(c *fiber.Ctx) error {
	consoleFrom(c).CloseDetails()
	return redirectHome(c)
}

func (h *ConsoleHandler) ConfirmCancel(c *fiber.Ctx) error {
	id, err := notificationID(c)
	if err != nil {
		return err
	}
	return h.html(c, func(buf *bytes.Buffer) error {
		return h.renderer.ConfirmCancel(buf, id)
	})
}

func (h *ConsoleHandler) CancelNotification(c *fiber.Ctx) error {
	id, err := notificationID(c)
	if err != nil {
		return err
	}

	confirmed := strings.EqualFold(strings.TrimSpace(c.FormValue("confirm")), "yes")
	_ = consoleFrom(c).Cancel(c.UserContext(), id, console.Confirmed(confirmed))
	return redirectHome(c)
}

func (h *ConsoleHandler) html(c *fiber.Ctx, write func(buf *bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		observability.WithContextLogger(h.logger, c.UserContext()).Error("render failed", zap.String("path", c.Path()), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

func consoleFrom(c *fiber.Ctx) *console.Console {
	con, _ := c.Locals(consoleLocalKey).(*console.Console)
	return con
}

func redirectHome(c *fiber.Ctx) error {
	return c.Redirect("/", fiber.StatusSeeOther)
}

// notificationID returns the unescaped :id route parameter.
func notificationID(c *fiber.Ctx) (string, error) {
	raw := c.Params("id")
	id, err := url.PathUnescape(raw)
	if err != nil {
		id = raw
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "notification id is required")
	}
	return id, nil
}
