package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"adaptive-assessment-service/internal/assessment"
	"adaptive-assessment-service/internal/config"
	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/infra/memory"
	pginfra "adaptive-assessment-service/internal/infra/postgres"
	redisinfra "adaptive-assessment-service/internal/infra/redis"
	"adaptive-assessment-service/internal/logger"
	"adaptive-assessment-service/internal/mastery"
	"adaptive-assessment-service/internal/path"
	"adaptive-assessment-service/internal/rewards"
	"adaptive-assessment-service/internal/selection"
	transport "adaptive-assessment-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// reportStore is what the server needs from report persistence: the
// assessment side writes, the path side reads.
type reportStore interface {
	assessment.ReportStore
	transport.ReportSource
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

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
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)
	itemTTL := config.TTLDuration(cfg.Items.TTL, 10*time.Minute)
	masteryTTL := config.TTLDuration(cfg.Mastery.CacheTTL, 15*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Without Redis or Postgres the server runs self-contained on sample
	// content, same shape as production.
	var itemLoader memory.ItemLoader = memory.NewStaticItemLoader(sampleItems())
	if pool != nil {
		itemLoader = pginfra.NewItemLoader(pool)
	}

	var items assessment.ItemRepository
	if redisClient != nil {
		items = redisinfra.NewItemRepository(redisClient, itemLoader, itemTTL)
	} else {
		loaded, err := itemLoader.LoadItems(ctx, cfg.Assessment.Jurisdiction)
		if err != nil {
			return err
		}
		items = memory.NewItemRepository(loaded)
	}

	var sessions assessment.SessionStore
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var reports reportStore = memory.NewReportStore()
	if cfg.Postgres.URL != "" {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		reports = pginfra.NewReportStore(db)
	}

	var concepts path.ConceptRepository = memory.NewConceptRepository(sampleConcepts())
	var finder path.PracticeItemFinder = memory.NewPracticeItemFinder(samplePracticeItems())
	var attempts mastery.AttemptRepository = memory.NewAttemptRepository()
	if pool != nil {
		concepts = pginfra.NewConceptLoader(pool)
		finder = pginfra.NewPracticeItemFinder(pool)
		attempts = pginfra.NewAttemptLog(pool)
	}

	var scoreCache mastery.ScoreCache
	if redisClient != nil {
		scoreCache = redisinfra.NewMasteryCache(redisClient, masteryTTL)
	}

	var ledger rewards.Ledger = memory.NewRewardLedger()
	if redisClient != nil {
		ledger = redisinfra.NewRewardLedger(redisClient)
	}

	assessmentSvc := assessment.NewService(items, sessions, reports, selection.NewSelector(), log)
	masterySvc := mastery.NewService(attempts, scoreCache, mastery.NewCalculator(), log)
	rewardEngine := rewards.NewEngine(ledger, log)
	generator := path.NewGenerator(concepts, finder, pathOptions(cfg), log)

	wsHandler := transport.NewWSHandler(assessmentSvc, cfg.Assessment, log)
	apiHandler := transport.NewAPIHandler(generator, masterySvc, rewardEngine, concepts, reports, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting assessment service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func pathOptions(cfg config.Config) path.Options {
	opts := path.DefaultOptions()
	if cfg.Path.ItemsPerConcept > 0 {
		opts.ItemsPerConcept = cfg.Path.ItemsPerConcept
	}
	if cfg.Path.RequiredAccuracy > 0 {
		opts.RequiredAccuracy = cfg.Path.RequiredAccuracy
	}
	if cfg.Path.CheckpointInterval > 0 {
		opts.CheckpointInterval = cfg.Path.CheckpointInterval
	}
	if cfg.Path.DefaultStudyMinutes > 0 {
		opts.DefaultStudyMinutes = cfg.Path.DefaultStudyMinutes
	}
	if cfg.Path.PracticeMinutesPerItem > 0 {
		opts.PracticeMinutesPerItem = cfg.Path.PracticeMinutesPerItem
	}
	if cfg.Path.AssessmentMinutes > 0 {
		opts.AssessmentMinutes = cfg.Path.AssessmentMinutes
	}
	return opts
}

// sampleItems seeds the no-infra mode with a small calibrated bank; swap in
// the Postgres loader for real content.
func sampleItems() []domain.Item {
	params := func(a, b, c float64) *domain.ItemParams {
		return &domain.ItemParams{A: a, B: b, C: c}
	}
	options := func(correct string) []domain.Option {
		return []domain.Option{
			{ID: "a", Text: "Option A", Correct: correct == "a"},
			{ID: "b", Text: "Option B", Correct: correct == "b"},
			{ID: "c", Text: "Option C", Correct: correct == "c"},
		}
	}
	return []domain.Item{
		{ID: "item-001", Jurisdiction: "CA", Topic: "contracts", CognitiveType: "RECALL", Difficulty: domain.DifficultyEasy, Prompt: "Which elements form a valid contract?", Options: options("a"), Params: params(1.2, -0.6, 0.25), Active: true},
		{ID: "item-002", Jurisdiction: "CA", Topic: "contracts", CognitiveType: "APPLICATION", Difficulty: domain.DifficultyMedium, Prompt: "A counteroffer has what effect on the original offer?", Options: options("b"), Params: params(1.5, 0.1, 0.25), Active: true},
		{ID: "item-003", Jurisdiction: "CA", Topic: "contracts", CognitiveType: "ANALYSIS", Difficulty: domain.DifficultyHard, Prompt: "Identify the enforceable promise in the scenario.", Options: options("c"), Params: params(1.8, 0.8, 0.2), Active: true},
		{ID: "item-004", Jurisdiction: "CA", Topic: "torts", CognitiveType: "RECALL", Difficulty: domain.DifficultyEasy, Prompt: "Negligence requires which elements?", Options: options("a"), Params: params(1.1, -0.4, 0.25), Active: true},
		{ID: "item-005", Jurisdiction: "CA", Topic: "torts", CognitiveType: "APPLICATION", Difficulty: domain.DifficultyMedium, Prompt: "Apply the reasonable person standard to the facts.", Options: options("b"), Params: params(1.4, 0.0, 0.25), Active: true},
		{ID: "item-006", Jurisdiction: "CA", Topic: "evidence", CognitiveType: "RECALL", Difficulty: domain.DifficultyMedium, Prompt: "When is hearsay admissible?", Options: options("c"), Params: params(1.3, 0.2, 0.25), Active: true},
		{ID: "item-007", Jurisdiction: "CA", Topic: "evidence", CognitiveType: "ANALYSIS", Difficulty: domain.DifficultyHard, Prompt: "Weigh the probative value against prejudice.", Options: options("a"), Params: params(1.7, 0.9, 0.2), Active: true},
		{ID: "item-008", Jurisdiction: "CA", Topic: "torts", CognitiveType: "ANALYSIS", Difficulty: domain.DifficultyHard, Prompt: "Trace proximate cause through the chain of events.", Options: options("b"), Params: params(1.6, 0.7, 0.2), Active: true},
	}
}

func sampleConcepts() []domain.ConceptNode {
	return []domain.ConceptNode{
		{ID: "concept-foundations", Jurisdiction: "CA", Name: "Legal foundations", Topic: "foundations", EstimatedStudyMinutes: 20, AvgCompletionSeconds: 55},
		{ID: "concept-offer", Jurisdiction: "CA", Name: "Offer and acceptance", Topic: "contracts", Prerequisites: []string{"concept-foundations"}, EstimatedStudyMinutes: 25, AvgCompletionSeconds: 70},
		{ID: "concept-consideration", Jurisdiction: "CA", Name: "Consideration", Topic: "contracts", Prerequisites: []string{"concept-offer"}, EstimatedStudyMinutes: 20, AvgCompletionSeconds: 65},
		{ID: "concept-negligence", Jurisdiction: "CA", Name: "Negligence", Topic: "torts", Prerequisites: []string{"concept-foundations"}, EstimatedStudyMinutes: 30, AvgCompletionSeconds: 80},
		{ID: "concept-hearsay", Jurisdiction: "CA", Name: "Hearsay", Topic: "evidence", Prerequisites: []string{"concept-foundations"}, EstimatedStudyMinutes: 25, AvgCompletionSeconds: 75},
	}
}

func samplePracticeItems() map[string][]string {
	return map[string][]string{
		"concept-offer":         {"item-001", "item-002"},
		"concept-consideration": {"item-003"},
		"concept-negligence":    {"item-004", "item-005", "item-008"},
		"concept-hearsay":       {"item-006", "item-007"},
	}
}
