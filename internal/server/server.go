// Package server exposes a search controller over a small JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/derickschaefer/departures/internal/search"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// TextRequest replaces an input's text. Without a selection the caret is
// placed at the end.
type TextRequest struct {
	Text     string `json:"text"`
	SelStart *int   `json:"sel_start,omitempty"`
	SelEnd   *int   `json:"sel_end,omitempty"`
}

func (r TextRequest) value() search.TextValue {
	v := search.Text(r.Text)
	if r.SelStart != nil {
		v.SelStart = *r.SelStart
		v.SelEnd = *r.SelStart
	}
	if r.SelEnd != nil {
		v.SelEnd = *r.SelEnd
	}
	return v
}

// SearchRequest submits a search. Nil fields keep the current input text.
type SearchRequest struct {
	Origin      *string `json:"origin,omitempty"`
	Destination *string `json:"destination,omitempty"`
	Wait        bool    `json:"wait"`
}

// SearchAccepted is returned for a search that runs in the background.
type SearchAccepted struct {
	Seq uint64 `json:"seq"`
}

// SelectionRequest selects a flight from the current results by number.
type SelectionRequest struct {
	Number string `json:"number"`
}

// AcceptRequest fills a field with a suggestion.
type AcceptRequest struct {
	Value string `json:"value"`
}

// Handler serves one controller. Background searches run under base so
// they outlive the request that started them.
type Handler struct {
	ctrl *search.Controller
	base context.Context
}

func NewHandler(base context.Context, ctrl *search.Controller) *Handler {
	return &Handler{ctrl: ctrl, base: base}
}

// New builds the echo instance with middleware and every route registered.
func New(base context.Context, ctrl *search.Controller, logger *slog.Logger) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.Warn("request", append(attrs, "err", v.Error)...)
			} else {
				logger.Info("request", attrs...)
			}
			return nil
		},
	}))

	h := NewHandler(base, ctrl)
	e.GET("/health", HealthHandler)

	api := e.Group("/api/v1")
	api.GET("/state", h.State)
	api.PUT("/origin", h.SetText(search.FieldOrigin))
	api.PUT("/destination", h.SetText(search.FieldDestination))
	api.GET("/suggestions/:field", h.Suggestions)
	api.POST("/suggestions/:field", h.Accept)
	api.DELETE("/suggestions/:field", h.Dismiss)
	api.POST("/search", h.Search)
	api.POST("/selection", h.Select)
	api.DELETE("/selection", h.ClearSelection)
	api.POST("/logout", h.Logout)
	return e
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func errorJSON(c echo.Context, code int, kind, msg string) error {
	return c.JSON(code, ErrorResponse{Error: kind, Message: msg, Code: code})
}

func (h *Handler) State(c echo.Context) error {
	return c.JSON(http.StatusOK, h.ctrl.State())
}

// SetText returns the handler for one of the two input fields.
func (h *Handler) SetText(f search.Field) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req TextRequest
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
		}
		if f == search.FieldDestination {
			h.ctrl.SetDestination(req.value())
		} else {
			h.ctrl.SetOrigin(req.value())
		}
		return c.JSON(http.StatusOK, h.ctrl.State())
	}
}

func (h *Handler) Suggestions(c echo.Context) error {
	f, err := search.ParseField(c.Param("field"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_field", err.Error())
	}
	return c.JSON(http.StatusOK, h.ctrl.Suggestions(f))
}

func (h *Handler) Accept(c echo.Context) error {
	f, err := search.ParseField(c.Param("field"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_field", err.Error())
	}
	var req AcceptRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	h.ctrl.Accept(f, req.Value)
	return c.JSON(http.StatusOK, h.ctrl.State())
}

func (h *Handler) Dismiss(c echo.Context) error {
	f, err := search.ParseField(c.Param("field"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_field", err.Error())
	}
	h.ctrl.Dismiss(f)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	if req.Origin != nil {
		h.ctrl.SetOrigin(search.Text(*req.Origin))
	}
	if req.Destination != nil {
		h.ctrl.SetDestination(search.Text(*req.Destination))
	}

	seq, ok := h.ctrl.SubmitCurrent(h.base)
	if !ok {
		origin := h.ctrl.State().Origin.Text
		return errorJSON(c, http.StatusUnprocessableEntity, "validation_error",
			fmt.Sprintf("origin must be 3 letters, got %q", origin))
	}
	if !req.Wait {
		return c.JSON(http.StatusAccepted, SearchAccepted{Seq: seq})
	}

	st, err := h.ctrl.Await(c.Request().Context(), seq)
	if err != nil {
		return errorJSON(c, http.StatusGatewayTimeout, "search_timeout", err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) Select(c echo.Context) error {
	var req SelectionRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	detail, ok := h.ctrl.SelectNumber(req.Number)
	if !ok {
		return errorJSON(c, http.StatusNotFound, "not_found", "no flight "+req.Number+" in the current results")
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ClearSelection(c echo.Context) error {
	h.ctrl.ClearSelection()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.ctrl.SignOut(c.Request().Context()); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "logout_error", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
