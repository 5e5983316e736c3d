package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docquiz/internal/app"
	"docquiz/internal/config"
	"docquiz/internal/generator"
	"docquiz/internal/infra/memory"
	pgstore "docquiz/internal/infra/postgres"
	rediscache "docquiz/internal/infra/redis"
	transport "docquiz/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the docquiz server",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// In-memory store doubles as saver and loader when Postgres is absent.
	memQuestions := memory.NewQuestionStore()
	var loader memory.QuestionLoader = memQuestions
	var saver app.QuestionSaver = memQuestions
	if pool != nil {
		pg := pgstore.NewQuestionStore(pool)
		loader = pg
		saver = pg
	}

	questionTTL := config.Duration(cfg.Questions.TTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = rediscache.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, questionTTL)
	}

	var notes app.WrongNoteStore
	if redisClient != nil {
		notes = rediscache.NewWrongNoteStore(redisClient)
	} else {
		notes = memory.NewWrongNoteStore()
	}

	gen := generator.NewFromConfig(cfg)
	generation := app.NewGenerationService(memory.NewDocumentStore(), memory.NewJobStore(), saver, gen)
	grading := app.NewGradingService(questionRepo, notes)

	mux := http.NewServeMux()
	transport.NewHandler(generation, grading).Register(mux)
	wsInterval := config.Duration(cfg.Poll.Interval, time.Second)
	mux.HandleFunc("GET /ws/jobs", transport.NewWSHandler(generation, wsInterval).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting docquiz server on :%s (model %s)", finalPort, gen.ModelName())
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
