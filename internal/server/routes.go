package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/berfenger/solisagility/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	requestTimeout = 30 * time.Second
	rebuildTimeout = 3 * time.Minute
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/version", s.VersionHandler)

	e.GET("/history/:date", s.HistoryHandler)
	e.GET("/profile", s.ProfileHandler)
	e.GET("/average", s.AverageHandler)
	e.GET("/settings", s.SettingsHandler)

	e.POST("/charge", s.ChargeHandler)
	e.POST("/discharge", s.DischargeHandler)
	e.POST("/gridonly", s.GridOnlyHandler)
	e.POST("/reset", s.ResetHandler)
	e.POST("/telemetry", s.TelemetryHandler)
	e.POST("/rebuild", s.RebuildHandler)
	e.POST("/firmware/invalidate", s.InvalidateFirmwareHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.RootContext.RequestFuture(s.AgilityActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) VersionHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"version":    versioninfo.Short(),
		"revision":   versioninfo.Revision,
		"lastCommit": versioninfo.LastCommit,
		"dirty":      versioninfo.DirtyBuild,
	})
}

func (s *Server) HistoryHandler(c echo.Context) error {
	day, err := time.ParseInLocation(time.DateOnly, c.Param("date"), s.Location)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	slots, err := s.Statistics.History(day.UnixMilli())
	if err != nil {
		return statisticsError(err)
	}
	return c.JSON(http.StatusOK, slots)
}

func (s *Server) ProfileHandler(c echo.Context) error {
	profile, err := s.Statistics.DailyProfile()
	if err != nil {
		return statisticsError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) AverageHandler(c echo.Context) error {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if !validTimeOfDay(from) || !validTimeOfDay(to) {
		return echo.NewHTTPError(http.StatusBadRequest, "from and to must be HH:MM")
	}
	avg, err := s.Statistics.AverageBetween(from, to)
	if err != nil {
		return statisticsError(err)
	}
	return c.JSON(http.StatusOK, avg)
}

func (s *Server) SettingsHandler(c echo.Context) error {
	if s.Settings == nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	settings, err := s.Settings.Settings(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"settings": settings})
}

func (s *Server) ChargeHandler(c echo.Context) error {
	return s.slotOrWindow(c, domain.ChargeSlotRequest{Override: true}, func(w domain.Window) domain.ActorRequest {
		return domain.ChargeBetweenRequest{Window: w}
	})
}

func (s *Server) DischargeHandler(c echo.Context) error {
	return s.slotOrWindow(c, domain.DischargeSlotRequest{Override: true}, func(w domain.Window) domain.ActorRequest {
		return domain.DischargeBetweenRequest{Window: w}
	})
}

func (s *Server) GridOnlyHandler(c echo.Context) error {
	return s.slotOrWindow(c, domain.GridOnlySlotRequest{Override: true}, func(w domain.Window) domain.ActorRequest {
		return domain.GridOnlyBetweenRequest{Window: w}
	})
}

func (s *Server) ResetHandler(c echo.Context) error {
	return s.request(c, domain.ResetNowRequest{}, requestTimeout)
}

func (s *Server) TelemetryHandler(c echo.Context) error {
	offset := 0
	if v := c.QueryParam("dayOffset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n > 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "dayOffset must be an integer <= 0")
		}
		offset = n
	}
	return s.request(c, domain.RefreshTelemetryRequest{DayOffset: offset}, requestTimeout)
}

func (s *Server) RebuildHandler(c echo.Context) error {
	return s.request(c, domain.RebuildHistoryRequest{}, rebuildTimeout)
}

func (s *Server) InvalidateFirmwareHandler(c echo.Context) error {
	if s.Firmware == nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err := s.Firmware.Invalidate(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// slotOrWindow sends the window request when the JSON body carries a window,
// else the override request for the current slot.
func (s *Server) slotOrWindow(c echo.Context, slot domain.ActorRequest, between func(domain.Window) domain.ActorRequest) error {
	var w domain.Window
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if w.From == "" && w.To == "" {
		return s.request(c, slot, requestTimeout)
	}
	if !validTimeOfDay(w.From) || !validTimeOfDay(w.To) {
		return echo.NewHTTPError(http.StatusBadRequest, "from and to must be HH:MM")
	}
	return s.request(c, between(w), requestTimeout)
}

type resultResponse struct {
	Id      string `json:"id"`
	Command string `json:"command"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) request(c echo.Context, req domain.ActorRequest, timeout time.Duration) error {
	res, err := s.RootContext.RequestFuture(s.AgilityActor, req, timeout).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	}
	response, ok := res.(domain.AgilityResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	status := http.StatusOK
	if response.Result.HasResponseError() {
		status = resultStatus(response.Result.ResponseError)
	}
	return c.JSON(status, resultResponse{
		Id:      response.Id,
		Command: response.Command,
		Kind:    string(response.Result.Kind),
		Message: response.Result.Message(),
	})
}

func resultStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingCredentials):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrTransport), errors.Is(err, domain.ErrVendor):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func statisticsError(err error) error {
	if errors.Is(err, domain.ErrNoHistoricalData) || errors.Is(err, domain.ErrSnapshotNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func validTimeOfDay(text string) bool {
	_, err := domain.MinuteOfDay(text)
	return err == nil
}
