package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"liquidator/internal/api"
	"liquidator/internal/api/handlers"
	"liquidator/internal/bot"
	"liquidator/internal/config"
	"liquidator/internal/exchange"
	"liquidator/internal/repository"
	"liquidator/internal/service"
	"liquidator/internal/websocket"
	"liquidator/pkg/crypto"
	"liquidator/pkg/utils"
)

func runFunc(c *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := utils.InitGlobalLogger(utils.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		Development: cfg.Logging.Development,
	})
	defer log.Sync()

	ctx := c.Context()

	// ============ Keypair и шлюз ============

	var encryptionKey []byte
	if cfg.Security.EncryptionKey != "" {
		if encryptionKey, err = crypto.ParseKey(cfg.Security.EncryptionKey); err != nil {
			return fmt.Errorf("encryption key: %w", err)
		}
	}

	keypair, err := exchange.LoadKeypair(cfg.Liquidator.KeypairPath, encryptionKey)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}

	gateway, err := exchange.NewGateway(exchange.GatewayConfig{
		URL:            cfg.Cluster.GatewayURL,
		GroupAddress:   cfg.Cluster.GroupAddress,
		DexProgramID:   cfg.Cluster.DexProgramID,
		RequestTimeout: cfg.RPC.RequestTimeout,
		MaxRetries:     cfg.RPC.MaxRetries,
		ReadRateLimit:  cfg.RPC.ReadRateLimit,
		WriteRateLimit: cfg.RPC.WriteRateLimit,
		Observer:       bot.RecordRPCCall,
	}, keypair)
	if err != nil {
		return fmt.Errorf("init gateway: %w", err)
	}
	defer gateway.Close()

	log.Info("liquidator starting",
		utils.String("cluster", cfg.Cluster.Name),
		utils.String("group", cfg.Cluster.GroupName),
		utils.String("group_address", cfg.Cluster.GroupAddress),
		utils.String("liquidator", keypair.PublicKey()),
		utils.Bool("dry_run", cfg.Liquidator.DryRun),
	)

	// ============ Журнал ============

	// Без журнала сервисы только транслируют события в WebSocket
	var (
		liquidationRepo  service.LiquidationRepositoryInterface
		notificationRepo service.NotificationRepositoryInterface
	)
	if cfg.Database.Enabled {
		db, err := openJournal(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		liquidationRepo = repository.NewLiquidationRepository(db)
		notificationRepo = repository.NewNotificationRepository(db)
		log.Info("journal connected", utils.String("dsn", cfg.Database.DSNWithoutPassword()))
	} else {
		log.Warn("journal disabled, history API is unavailable")
	}

	liquidationService := service.NewLiquidationService(liquidationRepo, log)
	notificationService := service.NewNotificationService(notificationRepo, log)

	hub := websocket.NewHub(
		websocket.WithLogger(log),
		websocket.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	)
	liquidationService.SetWebSocketHub(hub)
	notificationService.SetWebSocketHub(hub)

	housekeeper := service.NewHousekeeper(
		liquidationService,
		notificationService,
		cfg.Database.Retention,
		cfg.Database.KeepNotifications,
		log,
	)

	engine := bot.NewEngine(cfg.Liquidator, bot.Dependencies{
		Ledger:   gateway.Ledger,
		Venue:    gateway.Venue,
		Journal:  liquidationService,
		Notifier: notificationService,
		Hub:      hub,
		Logger:   log,
	})

	// ============ Запуск ============

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		hub.Stop()
		return nil
	})

	if cfg.Database.Enabled {
		g.Go(func() error {
			housekeeper.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		if err := engine.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfg.Server.Enabled {
		router := api.SetupRoutes(&api.Dependencies{
			Engine:          engine,
			Liquidations:    liquidationService,
			Notifications:   notificationService,
			Hub:             hub,
			Logger:          log,
			APIUser:         cfg.Security.APIUser,
			APIPasswordHash: cfg.Security.APIPasswordHash,
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			Cluster: handlers.ClusterInfo{
				Cluster:    cfg.Cluster.Name,
				Group:      cfg.Cluster.GroupName,
				GroupKey:   cfg.Cluster.GroupAddress,
				Liquidator: keypair.PublicKey(),
			},
			Journal: cfg.Database.Enabled,
		})

		server := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		g.Go(func() error {
			log.Info("status server listening", utils.String("addr", server.Addr), utils.Bool("https", cfg.Server.UseHTTPS))
			var err error
			if cfg.Server.UseHTTPS {
				err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})

		// Graceful shutdown
		g.Go(func() error {
			<-gctx.Done()
			log.Info("shutting down status server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn("status server forced to shutdown", utils.Err(err))
			}
			return nil
		})
	}

	err = g.Wait()
	log.Info("liquidator stopped", utils.Int64("cycles", engine.Status().Cycles))
	return err
}

// openJournal подключается к PostgreSQL и применяет схему
func openJournal(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := repository.Open(connectCtx, cfg.Driver, cfg.DSN(), cfg.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("connect journal: %w", err)
	}
	if err := repository.Migrate(connectCtx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return db, nil
}
