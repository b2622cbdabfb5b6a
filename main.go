package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BLKOUTUK/comms-blkout-sub001/domain/model"
	"github.com/BLKOUTUK/comms-blkout-sub001/domain/repository"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/cache"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/clients/social"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/configuration"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/logger"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/persistence"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/realtime"
	httpHandler "github.com/BLKOUTUK/comms-blkout-sub001/interfaces/http"
	"github.com/BLKOUTUK/comms-blkout-sub001/server"
	"github.com/BLKOUTUK/comms-blkout-sub001/usecase"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	psqlDb, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PostgreSQL not available - continuing without publish history and token persistence")
		psqlDb = nil
	}

	var stateStore social.StateStore
	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - OAuth state will be held in memory")
		stateStore = social.NewMemoryStateStore()
	} else {
		logger.GetLogger().Info("Redis client initialized successfully.")
		stateStore = cache.NewRedisStateStore(redisClient)
	}

	manager := social.NewManager(managerConfig(), stateStore)

	var tokenRepo repository.IPlatformToken
	var publishRepo repository.IPublishRecord
	if psqlDb != nil {
		if err := persistence.EnsurePublishSchema(psqlDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring publish schema")
		}
		tokenRepo = persistence.NewPlatformTokenRepository(psqlDb)
		publishRepo = persistence.NewPublishRecordRepository(psqlDb)

		manager.WithCredentialSink(func(p social.Platform, creds *social.Credentials) {
			sinkCtx, sinkCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer sinkCancel()
			tok := &model.PlatformToken{
				Platform:     string(p),
				AccessToken:  creds.AccessToken,
				RefreshToken: creds.RefreshToken,
				ExpiresAt:    creds.ExpiresAt,
				AccountID:    creds.AccountID,
				AccountName:  creds.AccountName,
			}
			if err := tokenRepo.UpsertToken(sinkCtx, tok); err != nil {
				logger.GetLogger().WithField("platform", p).WithField("error", err).Error("failed persisting platform token")
			}
		})

		seedConnectors(ctx, manager, tokenRepo)
	}

	hub := realtime.NewPublishHub()
	publishUC := usecase.NewPublishUsecase(manager, publishRepo, hub)
	publishHandler := httpHandler.NewPublishHandler(publishUC)
	socialAuthHandler := httpHandler.NewSocialAuthHandler(manager)

	router := server.InitiateRouter(socialAuthHandler, publishHandler, hub)

	logger.GetLogger().WithField("platforms", manager.Platforms()).Info("Social connectors registered")

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
			logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
			if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if psqlDb != nil {
		_ = psqlDb.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
	}
}

func managerConfig() social.ManagerConfig {
	conv := func(c configuration.OAuthClient) social.AppCredentials {
		return social.AppCredentials{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURI:  c.RedirectURI,
			Scopes:       c.Scopes,
		}
	}
	return social.ManagerConfig{
		Instagram: conv(configuration.C.Social.Instagram),
		TikTok:    conv(configuration.C.Social.TikTok),
		LinkedIn:  conv(configuration.C.Social.LinkedIn),
		Twitter:   conv(configuration.C.Social.Twitter),
	}
}

// seedConnectors loads persisted platform tokens so connections survive restarts.
func seedConnectors(ctx context.Context, manager *social.Manager, tokenRepo repository.IPlatformToken) {
	loadCtx, loadCancel := context.WithTimeout(ctx, 5*time.Second)
	defer loadCancel()
	tokens, err := tokenRepo.GetAllTokens(loadCtx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("failed loading platform tokens")
		return
	}
	for _, tok := range tokens {
		p, err := social.ParsePlatform(tok.Platform)
		if err != nil {
			continue
		}
		manager.SeedCredentials(p, &social.Credentials{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    tok.ExpiresAt,
			AccountID:    tok.AccountID,
			AccountName:  tok.AccountName,
		})
		logger.GetLogger().WithField("platform", p).Info("Seeded stored platform credentials")
	}
}
