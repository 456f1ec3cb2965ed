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

	"listenlab/internal/app"
	"listenlab/internal/config"
	"listenlab/internal/domain"
	"listenlab/internal/infra/memory"
	pginfra "listenlab/internal/infra/postgres"
	redisinfra "listenlab/internal/infra/redis"
	"listenlab/internal/playback"
	"listenlab/internal/scoring"
	transport "listenlab/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the listening practice server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.ContentLoader = memory.NewStaticContentLoader(sampleContents())
	if pool != nil {
		loader = pginfra.NewContentLoader(pool)
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var contents app.ContentRepository
	if redisClient != nil {
		contents = redisinfra.NewContentRepository(redisClient, loader, contentTTL)
	} else {
		contents = memory.NewContentRepository(loader, contentTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	serviceCfg := app.Config{
		AdvanceDelay:     config.TTLDuration(cfg.Session.AdvanceDelay, 0),
		CompleteDelay:    config.TTLDuration(cfg.Session.CompleteDelay, 0),
		SubmitTimeout:    config.TTLDuration(cfg.Session.SubmitTimeout, 0),
		SnapshotInterval: config.TTLDuration(cfg.Session.SnapshotInterval, 0),
	}

	opts := []app.Option{}
	if redisClient != nil {
		opts = append(opts, app.WithSnapshotStore(redisinfra.NewSnapshotStore(redisClient, redisTTL)))
	} else {
		opts = append(opts, app.WithSnapshotStore(memory.NewSnapshotStore()))
	}
	if pool != nil {
		opts = append(opts, app.WithRecorder(pginfra.NewRecorder(pool)))
	}
	if cfg.Scoring.URL != "" {
		timeout := config.TTLDuration(cfg.Scoring.Timeout, 10*time.Second)
		opts = append(opts, app.WithRemoteScorer(scoring.NewClient(cfg.Scoring.URL, timeout)))
	}

	service := app.NewPracticeService(contents, sessions, serviceCfg, opts...)

	var playbackOpts []playback.Option
	if cfg.Playback.RevealDelay != "" {
		playbackOpts = append(playbackOpts, playback.WithRevealDelay(config.TTLDuration(cfg.Playback.RevealDelay, 2*time.Second)))
	}
	wsHandler := transport.NewWSHandler(service, playbackOpts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting listening practice service on :%s", finalPort)
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

// sampleContents provides built-in practice material for running without a
// database.
func sampleContents() map[string]domain.Content {
	return map[string]domain.Content{
		"campus-library": {
			ID:   "campus-library",
			Name: "Campus Conversation: Library Research",
			Type: "audio",
			URL:  "/audio/campus-library.mp3",
			Questions: []domain.Question{
				{
					ID:             "q1",
					Text:           "Why does the student go to see the librarian?",
					Type:           "multiple_choice",
					Options:        []string{"To return an overdue book", "To get help finding sources for a paper", "To reserve a study room", "To apply for a library job"},
					CorrectAnswer:  "To get help finding sources for a paper",
					Explanation:    "The student opens the conversation by asking for help with research sources.",
					AudioTimestamp: 12,
				},
				{
					ID:             "q2",
					Text:           "What does the librarian suggest the student do first?",
					Type:           "multiple_choice",
					Options:        []string{"Search the online catalog", "Ask the professor", "Check the reserve desk", "Browse the stacks"},
					CorrectAnswer:  "Search the online catalog",
					Explanation:    "The librarian recommends starting with the catalog before anything else.",
					AudioTimestamp: 45,
				},
				{
					ID:            "q3",
					Text:          "Which resources does the librarian mention? Select all that apply.",
					Type:          "multiple_answer",
					Options:       []string{"Academic databases", "Microfilm archives", "Interlibrary loan", "Course reserves"},
					CorrectAnswer: "Academic databases,Interlibrary loan",
					Explanation:   "She names the databases and offers interlibrary loan for items the library lacks.",
				},
			},
		},
	}
}
