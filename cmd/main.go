package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/broker/binance"
	"github.com/Cyvadra/signal-relay/broker/rest"
	"github.com/Cyvadra/signal-relay/internal/config"
	"github.com/Cyvadra/signal-relay/internal/database"
	"github.com/Cyvadra/signal-relay/internal/handlers"
	"github.com/Cyvadra/signal-relay/internal/routes"
	"github.com/Cyvadra/signal-relay/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version = "dev"

func main() {
	app := cli.NewApp()
	app.Name = "signal-relay"
	app.Usage = "Relay Chartink and TradingView signals to brokers"
	app.Version = Version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Value:  "config.yaml",
			Usage:  "Path to configuration file",
			EnvVar: "RELAY_CONFIG",
		},
	}

	app.Commands = []cli.Command{
		serveCMD,
		migrateCMD,
		brokersCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the webhook server",
		Action:      serveAction,
		Description: `Start the HTTP server and process incoming signals`,
	}
	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "migrate the database schema",
		Action:      migrateAction,
		Description: `Create or update every table used by the relay`,
	}
	brokersCMD = cli.Command{
		Name:        "brokers",
		Usage:       "list supported brokers",
		Action:      brokersAction,
		Description: `Print the registered broker adapters and the REST catalog`,
	}
)

// setup loads the configuration and configures logging and broker registration
func setup(c *cli.Context) (*config.Config, *logrus.Entry, error) {
	cfg, err := config.LoadConfig(c.GlobalString("config"))
	if err != nil {
		return nil, nil, err
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	logrus.SetLevel(level)
	if strings.EqualFold(cfg.Log.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	rest.Register(cfg.Brokers.BaseURLs, cfg.Brokers.RequestTimeout)
	binance.UseTestnet = cfg.Brokers.BinanceTestnet

	return cfg, logrus.WithField("app", "signal-relay"), nil
}

func serveAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	log.WithField("version", Version).Info("Starting signal relay")

	db, err := database.InitDatabase(cfg.Database, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize database")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := broker.NewManager(log)
	brokerService := services.NewBrokerService(db, manager, log)
	loaded, err := brokerService.LoadActive(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load broker configs")
		return err
	}
	log.WithField("brokers", loaded).Info("Broker configs loaded")

	mode, err := services.NewModeState(cfg.Trading.DefaultMode)
	if err != nil {
		return err
	}

	strategies := services.NewStrategyService(db, log)
	ledger := services.NewLedger(db, log)
	risk := services.NewRiskEvaluator(cfg.Risk, ledger, log)
	router := services.NewRouter(manager, cfg.Trading.DefaultBroker, cfg.Brokers.RequestTimeout, log)
	notifier := services.NewNotifier(cfg.Endpoints, log)
	pipeline := services.NewPipeline(strategies, risk, ledger, router, mode, notifier, log)

	handler := handlers.NewHandler(handlers.Dependencies{
		Pipeline:       pipeline,
		Strategies:     strategies,
		Ledger:         ledger,
		Brokers:        brokerService,
		Manager:        manager,
		Mode:           mode,
		Signals:        cfg.Signals,
		RequestTimeout: cfg.Brokers.RequestTimeout,
		Logger:         log,
	})

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, handler)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":         addr,
			"trading_mode": mode.Current(),
		}).Info("Starting server")
		log.Infof("Chartink webhook endpoint: http://%s/api/v1/webhook/chartink", addr)
		log.Infof("TradingView webhook endpoint: http://%s/api/v1/webhook/tradingview", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("Failed to start server")
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server shutdown incomplete")
	}
	notifier.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

func migrateAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}

	db, err := database.InitDatabase(cfg.Database, log)
	if err != nil {
		log.WithError(err).Error("Failed to migrate database")
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.WithField("driver", cfg.Database.Driver).Info("Database migrated")
	return nil
}

func brokersAction(c *cli.Context) error {
	if _, _, err := setup(c); err != nil {
		return err
	}

	fmt.Println("Registered adapters:")
	for _, name := range broker.RegisteredBrokers() {
		display := name
		if info, ok := broker.Catalog[name]; ok {
			display = fmt.Sprintf("%s (%s) %s", name, info.DisplayName, strings.Join(info.Exchanges, ","))
		}
		fmt.Printf("  %s\n", display)
	}
	return nil
}
