package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/app"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/auth"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/config"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/game"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/history"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/infra/memory"
	pgloader "github.com/ST4RKiLLaX/lets-go-quizzing/internal/infra/postgres"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/infra/quizfs"
	redisrepo "github.com/ST4RKiLLaX/lets-go-quizzing/internal/infra/redis"
	transport "github.com/ST4RKiLLaX/lets-go-quizzing/internal/transport/http"
)

const defaultRoomMaxIdle = 12 * time.Hour

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	dataDir := cfg.Data.Dir
	if dataDir == "" {
		dataDir = "data"
	}

	hostPassword := cfg.Auth.HostPassword
	if hostPassword == "" {
		hostPassword = os.Getenv("HOST_PASSWORD")
	}
	passwords := auth.NewPasswordVerifier(hostPassword, cfg.Auth.HostPasswordHash)
	if !passwords.HostingEnabled() {
		log.Printf("no host password configured, hosting is disabled")
	}
	tokens := auth.NewTokenStore(config.TTLDuration(cfg.Auth.SessionTTL, auth.DefaultSessionTTL))
	authSvc := auth.NewService(tokens, passwords)
	limiter := auth.NewRateLimiter()

	rooms := game.NewRegistry(cfg.Rooms.CodeLength)

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	fsLoader := quizfs.NewLoader(dataDir)

	var quizRepo app.QuizRepository
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader := pgloader.NewQuizLoader(pool)
		if cfg.Redis.Addr != "" {
			quizRepo = redisrepo.NewQuizRepository(newRedisClient(cfg), loader, quizTTL)
		} else {
			quizRepo = memory.NewQuizRepository(loader, quizTTL)
		}
	case cfg.Redis.Addr != "":
		quizRepo = redisrepo.NewQuizRepository(newRedisClient(cfg), fsLoader, quizTTL)
	default:
		quizRepo = memory.NewQuizRepository(fsLoader, quizTTL)
	}

	hub := transport.NewHub()
	exporter := history.NewExporter(dataDir)
	service := app.NewGameService(rooms, quizRepo, authSvc, limiter, exporter, hub)
	wsHandler := transport.NewWSHandler(service, hub)
	loginHandler := transport.NewLoginHandler(authSvc, limiter)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/api/login", loginHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go runSweeper(sweepCtx, cfg, rooms, tokens, limiter)

	go func() {
		log.Printf("starting trivia server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// runSweeper periodically drops expired rate-limit windows, stale host
// tokens, and finished or abandoned rooms. It runs independently of any room
// lock; each store sweeps under its own.
func runSweeper(ctx context.Context, cfg config.Config, rooms *game.Registry, tokens *auth.TokenStore, limiter *auth.RateLimiter) {
	interval := config.TTLDuration(cfg.Rooms.SweepInterval, auth.CleanupInterval)
	maxIdle := config.TTLDuration(cfg.Rooms.MaxIdle, defaultRoomMaxIdle)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rooms.Sweep(maxIdle); n > 0 {
				log.Printf("swept %d finished or idle rooms", n)
			}
			tokens.Sweep()
			limiter.Sweep()
		}
	}
}

// NewQuizzesCmd lists the quiz documents available in the data directory.
func NewQuizzesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quizzes",
		Short: "List available quiz files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			dataDir := cfg.Data.Dir
			if dataDir == "" {
				dataDir = "data"
			}
			names, err := quizfs.NewLoader(dataDir).List()
			if err != nil {
				return err
			}
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}
}
