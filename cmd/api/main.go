package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/berfenger/solisagility/internal/adapter/mqtt"
	"github.com/berfenger/solisagility/internal/adapter/schedule"
	"github.com/berfenger/solisagility/internal/adapter/soliscloud"
	"github.com/berfenger/solisagility/internal/adapter/store"
	"github.com/berfenger/solisagility/internal/config"
	"github.com/berfenger/solisagility/internal/core/actor"
	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"
	"github.com/berfenger/solisagility/internal/core/service"
	"github.com/berfenger/solisagility/internal/server"
	"github.com/berfenger/solisagility/internal/util/actorutil"
	"github.com/berfenger/solisagility/internal/util/clock"

	pactor "github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	clk, err := clock.FromZone(cfg.Timezone)
	if err != nil {
		logger.Fatal("main: time zone", zap.Error(err))
	}

	db, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		logger.Fatal("main: store", zap.Error(err))
	}
	defer db.Close()

	// vendor adapters
	client := soliscloud.NewClient(cfg.SolisCloud.Endpoint, cfg.SolisCloud.InverterSn,
		soliscloud.Signer{KeyID: cfg.SolisCloud.Key, Secret: cfg.SolisCloud.Secret}, logger,
		soliscloud.WithLocation(clk.Location()),
		soliscloud.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.SolisCloud.TimeoutMillis) * time.Millisecond}))
	live := config.NewLive(viper.GetViper())
	firmware := config.NewFirmwareCache(live)
	control := soliscloud.NewControl(client, firmware, clk, soliscloud.ControlConfig{
		ChargeCurrent:    cfg.SolisCloud.ChargeCurrent,
		DischargeCurrent: cfg.SolisCloud.DischargeCurrent,
		ChargeSOC:        cfg.SolisCloud.ChargeSOC,
		DischargeSOC:     cfg.SolisCloud.DischargeSOC,
	}, logger)
	if !client.Configured() {
		logger.Warn("main: solis cloud credentials missing, control operations will fail")
	}

	flags := config.NewFlags(live)
	series := service.NewTimeSeries(db, logger)
	stats := service.NewStatistics(series, &service.PriceLookup{Repository: db}, clk, logger)

	// mqtt status publishing
	var publisher port.ResultPublisher
	var battery port.Battery = detachedBattery{}
	var mqttClient *mqtt.MQTTClient
	var statusPublisher *mqtt.StatusPublisher
	if cfg.MQTT.Enabled() {
		mqttClient = mqtt.CreateMQTTClient(cfg.MQTT, mqtt.OptsFromConfig(cfg.MQTT), nil, func(_ pahomqtt.Client, err error) {
			logger.Warn("main: mqtt connection lost", zap.Error(err))
		})
		statusPublisher = mqtt.NewStatusPublisher(mqttClient, 5*time.Second, logger)
		publisher = statusPublisher
		battery = statusPublisher
	}

	agility := &service.Agility{
		Inverter:  control,
		Telemetry: &soliscloud.Telemetry{Client: client, Currency: cfg.SolisCloud.Currency},
		Series:    series,
		History:   db,
		Clock:     clk,
		Flags:     flags,
		Battery:   battery,
		Logger:    logger.With(zap.String("component", "agility")),
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewAgilityActor(agility, publisher, logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_AGILITY)
	if err != nil {
		logger.Fatal("main: spawn agility actor", zap.Error(err))
	}
	dispatch := func(req domain.ActorRequest) {
		ctx.Send(pid, req)
	}

	if mqttClient != nil {
		err := mqtt.Start(mqttClient, statusPublisher, func(cmd mqtt.ParsedSwitchCommand) {
			switch cmd.SwitchId {
			case mqtt.SWITCH_ID_CHARGING_ENABLED:
				flags.SetChargingEnabled(cmd.On)
			case mqtt.SWITCH_ID_DISCHARGING_ENABLED:
				flags.SetDischargingEnabled(cmd.On)
			case mqtt.SWITCH_ID_DISCHARGE_REQUESTED:
				if cmd.On {
					dispatch(domain.DischargeSlotRequest{Override: true})
				}
			}
		}, 10*time.Second, logger)
		if err != nil {
			logger.Error("main: mqtt unavailable", zap.Error(err))
		}
		defer mqttClient.Disconnect(time.Second)
	}

	// cron triggers
	schedCtx, cancelSched := context.WithCancel(context.Background())
	defer cancelSched()
	sched := schedule.NewScheduler(cfg.Schedule, cfg.Agility.SlotPlan, clk, clk.Location(), dispatch, logger)
	if err := sched.Start(schedCtx); err != nil {
		logger.Fatal("main: scheduler", zap.Error(err))
	}

	// fill the history window on startup
	dispatch(domain.RebuildHistoryRequest{})

	server := server.NewServer(*cfg, server.Dependencies{
		RootContext:  ctx,
		AgilityActor: pid,
		Statistics:   stats,
		Location:     clk.Location(),
		Settings:     control,
		Firmware:     firmware,
	})
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	sched.Stop()
	ctx.Stop(pid)
	as.Shutdown()
}

// detachedBattery stands in for the battery collaborator when no broker is
// configured.
type detachedBattery struct{}

func (detachedBattery) UnsetDischargeControlFlag() error { return nil }

func initConfig() (*config.Config, error) {

	// alias PORT => SOLISAGILITY_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SOLISAGILITY_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("solisagility")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("solis_cloud.endpoint", "https://www.soliscloud.com:13333")
	viper.SetDefault("solis_cloud.charge_current", 50)
	viper.SetDefault("solis_cloud.discharge_current", 50)
	viper.SetDefault("solis_cloud.charge_soc", 100)
	viper.SetDefault("solis_cloud.discharge_soc", 20)
	viper.SetDefault("solis_cloud.currency", "GBP")
	viper.SetDefault("solis_cloud.timeout_millis", 30000)
	viper.SetDefault("solis_cloud.keep_inverter_time_synchronised", false)
	viper.SetDefault("agility.charging_enabled", false)
	viper.SetDefault("agility.discharging_enabled", false)
	viper.SetDefault("agility.moving_average_period", 7)
	viper.SetDefault("store.path", "solisagility.db")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.base_topic", "solisagility")
	viper.SetDefault("schedule.slot_cron", "0 0,30 * * * *")
	viper.SetDefault("schedule.telemetry_cron", "0 5,35 * * * *")
	viper.SetDefault("schedule.trim_cron", "0 15 0 * * *")
	viper.SetDefault("schedule.clock_sync_cron", "0 45 3 * * *")
	viper.SetDefault("timezone", "Europe/London")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.SolisCloud.Key = "*redacted*"
	cfg.SolisCloud.Secret = "*redacted*"
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
