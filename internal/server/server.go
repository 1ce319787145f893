package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/solisagility/internal/config"
	"github.com/berfenger/solisagility/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

// StatisticsReader is the read-only view the HTTP front serves from.
type StatisticsReader interface {
	History(dateIndex int64) ([]domain.HistorySlot, error)
	AverageBetween(from, to string) (domain.Average, error)
	DailyProfile() ([]domain.ProfileSlot, error)
}

type SettingsReader interface {
	Settings(ctx context.Context) (string, error)
}

type FirmwareInvalidator interface {
	Invalidate() error
}

type Dependencies struct {
	RootContext  actor.SenderContext
	AgilityActor *actor.PID
	Statistics   StatisticsReader
	Location     *time.Location
	// optional
	Settings SettingsReader
	Firmware FirmwareInvalidator
}

type Server struct {
	port    uint
	httpLog bool
	Dependencies
}

func NewServer(cfg config.Config, deps Dependencies) *http.Server {
	NewServer := &Server{
		port:         cfg.Port,
		httpLog:      cfg.HttpLog,
		Dependencies: deps,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Minute,
	}

	return server
}
