package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scalecode-solutions/solstream/auth"
	"github.com/scalecode-solutions/solstream/balance"
	"github.com/scalecode-solutions/solstream/config"
	"github.com/scalecode-solutions/solstream/crypto"
	"github.com/scalecode-solutions/solstream/media"
	"github.com/scalecode-solutions/solstream/moderation"
	"github.com/scalecode-solutions/solstream/redis"
	"github.com/scalecode-solutions/solstream/store"
	"github.com/scalecode-solutions/solstream/video"
)

const (
	currentVersion = "0.1.0"
)

var buildstamp = "dev"

func main() {
	configFile := flag.String("config", "solstream.yaml", "Path to config file")
	initDB := flag.Bool("init-db", false, "Initialize database schema")
	generateKeys := flag.Bool("generate-keys", false, "Generate secure cryptographic keys and exit")
	flag.Parse()

	if *generateKeys {
		printGeneratedKeys()
		return
	}

	fmt.Printf("SolStream v%s (build: %s)\n", currentVersion, buildstamp)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := store.New(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if *initDB {
		fmt.Println("Initializing database schema...")
		if err := db.InitSchema(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Schema initialized")
	}

	version, err := db.GetSchemaVersion()
	if err != nil {
		fmt.Println("Warning: Could not get schema version (run with -init-db to initialize)")
	} else {
		fmt.Printf("Schema version: %d\n", version)
	}

	// Redis is optional. Without it nonces, revocations and viewer counts
	// stay on this node.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			NodeID:   cfg.Redis.NodeID,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to Redis: %v\n", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		fmt.Printf("Connected to Redis (node: %s)\n", cfg.Redis.NodeID)
	}

	tokenKey, err := base64.StdEncoding.DecodeString(cfg.Auth.Token.Key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode token key: %v\n", err)
		os.Exit(1)
	}
	authCfg := auth.Config{
		TokenKey:     tokenKey,
		TokenExpiry:  time.Duration(cfg.Auth.Token.ExpireIn) * time.Second,
		ChallengeTTL: time.Duration(cfg.Auth.Challenge.TTL) * time.Second,
	}
	var authService *auth.Auth
	if redisClient != nil {
		authService, err = auth.New(authCfg, redisClient, redisClient)
	} else {
		authService, err = auth.New(authCfg, nil, nil)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize auth: %v\n", err)
		os.Exit(1)
	}

	hub := NewHub()
	hub.SetRedis(redisClient)
	go hub.Run()

	var pubsubCancel context.CancelFunc
	if redisClient != nil {
		var pubsubCtx context.Context
		pubsubCtx, pubsubCancel = context.WithCancel(context.Background())

		streamPubsub := redisClient.NewPubSub(hub.HandlePubSubMessage)
		if err := streamPubsub.SubscribeStreams(pubsubCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to subscribe to stream channels: %v\n", err)
			os.Exit(1)
		}
		defer streamPubsub.Close()
		go streamPubsub.Listen(pubsubCtx)
	}

	presence := NewPresenceManager(hub, redisClient)
	hub.SetPresence(presence)

	encryptor, err := crypto.NewEncryptorFromBase64(cfg.Database.EncryptionKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize encryptor: %v\n", err)
		os.Exit(1)
	}

	videoClient := video.NewClient(video.Config{
		BaseURL: cfg.Video.APIURL,
		APIKey:  cfg.Video.APIKey,
		CDNURL:  cfg.Video.CDNURL,
		Timeout: time.Duration(cfg.Video.Timeout) * time.Second,
	}, nil)

	balances := balance.NewClient(cfg.Solana.RPCEndpoint, cfg.Solana.Commitment,
		time.Duration(cfg.Solana.Timeout)*time.Second)

	thumbs := media.NewThumbnailer(media.Config{
		UploadPath:    cfg.Media.UploadDir,
		MaxUploadSize: cfg.Media.MaxSize,
		ThumbWidth:    cfg.Media.ThumbWidth,
		ThumbHeight:   cfg.Media.ThumbHeight,
		ThumbQuality:  80,
	})

	var modManager *moderation.Manager
	if cfg.Moderation.Enabled {
		modManager = moderation.NewManager(context.Background(), moderation.NoopAnalyzer{}, moderation.Config{
			Interval:  time.Duration(cfg.Moderation.Interval) * time.Second,
			Threshold: cfg.Moderation.Threshold,
		})
	}

	handlers := NewHandlers(HandlerDeps{
		Store:      db,
		Auth:       authService,
		Hub:        hub,
		Presence:   presence,
		Encryptor:  encryptor,
		Video:      videoClient,
		Balances:   balances,
		Thumbs:     thumbs,
		Moderation: modManager,
		Config:     cfg,
	})

	if modManager != nil {
		modManager.OnTerminate(handlers.OnStreamTerminated)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := handlers.ResumeModeration(ctx); err != nil {
			slog.Warn("could not resume moderation for live streams", "error", err)
		}
		cancel()
		fmt.Printf("Moderation enabled (interval=%ds, threshold=%.2f)\n",
			cfg.Moderation.Interval, cfg.Moderation.Threshold)
	}

	srv := NewServer(hub, cfg, handlers, db)

	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		fmt.Printf("Listening on %s (timeouts: read=%ds, write=%ds, idle=%ds)\n",
			cfg.Server.Listen, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "HTTP server error: %v\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if pubsubCancel != nil {
		pubsubCancel()
	}
	if modManager != nil {
		modManager.Shutdown()
	}

	// Closes WebSocket connections
	hub.Shutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "HTTP server shutdown error: %v\n", err)
		httpServer.Close()
	}

	fmt.Println("Server stopped")
}

// printGeneratedKeys outputs secure keys for configuration.
func printGeneratedKeys() {
	tokenKey, err := crypto.GenerateKeyBase64()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate secure key: %v\n", err)
		os.Exit(1)
	}
	encryptionKey, err := crypto.GenerateKeyBase64()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate secure key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("# Generated secure keys for SolStream configuration")
	fmt.Println("# Changing keys after deployment invalidates sessions and stored stream keys!")
	fmt.Println("")
	fmt.Println("# Environment variables:")
	fmt.Printf("export TOKEN_KEY='%s'\n", tokenKey)
	fmt.Printf("export ENCRYPTION_KEY='%s'\n", encryptionKey)
	fmt.Println("")
	fmt.Println("# Or YAML configuration:")
	fmt.Println("database:")
	fmt.Printf("  encryption_key: %s\n", encryptionKey)
	fmt.Println("auth:")
	fmt.Println("  token:")
	fmt.Printf("    key: %s\n", tokenKey)
}
