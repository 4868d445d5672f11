package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"chatlink/internal/config"
	"chatlink/internal/push"
	"chatlink/internal/rtdb"
	authService "chatlink/internal/service/auth"
	chatService "chatlink/internal/service/chat"
	groupService "chatlink/internal/service/group"
	mediaService "chatlink/internal/service/media"
	rosterService "chatlink/internal/service/roster"
	"chatlink/pkg/jwt"
	"chatlink/pkg/logger"

	"go.uber.org/zap"
)

// chatctl is the interactive terminal client: sign in, pick a contact or
// group, and chat against whichever tree backend is configured.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to set up backend", zap.Error(err))
	}
	logger.Info("backend ready", zap.String("backend", cfg.Backend))

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TokenDuration)

	chatOpts := []chatService.Option{}
	if cfg.MinIO.Enabled {
		media, err := mediaService.NewService(ctx, mediaService.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to set up media storage", zap.Error(err))
		}
		chatOpts = append(chatOpts, chatService.WithMedia(media))
	}
	if notifier := buildNotifier(ctx, cfg, store); notifier != nil {
		chatOpts = append(chatOpts, chatService.WithNotifier(notifier))
	}

	rosterOpts := []rosterService.Option{}
	if cfg.Roster.PropagateProfile {
		rosterOpts = append(rosterOpts, rosterService.WithProfilePropagation())
	}

	app := &app{
		auth:   authService.NewService(store, tokens),
		roster: rosterService.NewService(store, rosterOpts...),
		groups: groupService.NewService(store),
		chat:   chatService.NewService(store, chatOpts...),
	}

	if err := app.run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (rtdb.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return rtdb.NewMemoryStore(), nil
	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		return rtdb.NewRedisStore(client), nil
	case config.BackendFirebase:
		return rtdb.NewFirebaseStore(ctx, &rtdb.FirebaseConfig{
			DatabaseURL:     cfg.Firebase.DatabaseURL,
			CredentialsFile: cfg.Firebase.CredentialsFile,
			PollInterval:    cfg.Firebase.PollInterval,
		})
	case config.BackendRemote:
		return rtdb.NewRemoteStore(cfg.Remote.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func buildNotifier(ctx context.Context, cfg *config.Config, store rtdb.Store) chatService.Notifier {
	var fcm, apns push.Provider

	if cfg.Push.FCMCredentialsFile != "" {
		provider, err := push.NewFCMProvider(ctx, &push.FCMConfig{
			CredentialsPath: cfg.Push.FCMCredentialsFile,
			ProjectID:       cfg.Push.FCMProjectID,
		})
		if err != nil {
			logger.Warn("FCM disabled", zap.Error(err))
		} else {
			fcm = provider
		}
	}
	if cfg.Push.APNsKeyPath != "" {
		provider, err := push.NewAPNsProvider(&push.APNsConfig{
			KeyPath:    cfg.Push.APNsKeyPath,
			KeyID:      cfg.Push.APNsKeyID,
			TeamID:     cfg.Push.APNsTeamID,
			BundleID:   cfg.Push.APNsBundleID,
			Production: cfg.Push.APNsProd,
		})
		if err != nil {
			logger.Warn("APNs disabled", zap.Error(err))
		} else {
			apns = provider
		}
	}

	if fcm == nil && apns == nil {
		return nil
	}
	return push.NewNotifier(store, fcm, apns)
}
