// Package app wires the database, the recipe library, the planner and its
// observers into one place the commands share.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"recipe-box/internal/clipper"
	"recipe-box/internal/config"
	"recipe-box/internal/database"
	"recipe-box/internal/events"
	"recipe-box/internal/metrics"
	"recipe-box/internal/planner"
	"recipe-box/internal/recipe"
	"recipe-box/internal/shopping"
	"recipe-box/internal/storage"
)

// App holds the application's dependencies.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	db           *database.DB
	recipeRepo   *recipe.Repository
	recipeStore  *storage.RecipeStore
	library      *Library
	planRepo     *planner.PlanRepository
	metricsStore *metrics.Store
	collector    *metrics.Collector
	bus          *events.Bus
	redis        *events.RedisPublisher
	planner      *planner.Orchestrator
	clipper      *clipper.Clipper
}

// New opens the database and builds every component from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	recipeStore, err := storage.NewRecipeStore(cfg.RecipeDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize recipe directory: %w", err)
	}

	a := &App{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		recipeRepo:   recipe.NewRepository(db.SQL, logger),
		recipeStore:  recipeStore,
		planRepo:     planner.NewPlanRepository(db.SQL),
		metricsStore: metrics.NewStore(db.SQL),
		collector:    metrics.NewCollector(),
		bus:          events.NewBus(),
		clipper:      clipper.NewClipper(cfg.ClipTimeout, logger.Named("clipper")),
	}
	a.library = &Library{repo: a.recipeRepo, files: recipeStore, logger: logger}

	publisher := events.Fanout{a.bus}
	if cfg.RedisAddr != "" {
		a.redis, err = events.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			db.Close()
			return nil, err
		}
		publisher = append(publisher, a.redis)
	}

	a.bus.Subscribe(func(ev events.Event) {
		logger.Debug("State changed",
			zap.String("topic", string(ev.Topic)), zap.String("operation", ev.Operation), zap.Int("count", ev.Count))
	})

	list := shopping.NewAggregator(shopping.NewRepository(db.SQL), shopping.WithLogger(logger.Named("shopping")))
	a.planner = planner.NewOrchestrator(cfg.PlanID, a.recipeRepo, a.planRepo, list,
		planner.WithLogger(logger.Named("planner")),
		planner.WithPublisher(publisher),
		planner.WithRecorder(metrics.Recorders{a.metricsStore, a.collector}),
	)
	return a, nil
}

// Planner returns the orchestrator for the configured plan.
func (a *App) Planner() *planner.Orchestrator { return a.planner }

// Recipes returns the recipe repository.
func (a *App) Recipes() *recipe.Repository { return a.recipeRepo }

// Library saves recipes to both the database and the recipe directory.
func (a *App) Library() *Library { return a.library }

// Clipper returns the URL recipe importer.
func (a *App) Clipper() *clipper.Clipper { return a.clipper }

// MetricsStore returns the persisted operation metrics.
func (a *App) MetricsStore() *metrics.Store { return a.metricsStore }

// Collector returns the Prometheus collector.
func (a *App) Collector() *metrics.Collector { return a.collector }

// Events returns the in-process event bus.
func (a *App) Events() *events.Bus { return a.bus }

// DataPaths lists the paths whose size the health report includes.
func (a *App) DataPaths() []string {
	return []string{a.cfg.DatabasePath, a.cfg.RecipeDir}
}

// SyncResult reports what SyncRecipes did.
type SyncResult struct {
	Saved     int
	Unchanged int
	Failed    []error
}

// SyncRecipes loads every recipe file from the recipe directory into the
// database. Files whose updated_at matches the stored copy are skipped;
// files that fail to load are reported and do not stop the sync.
func (a *App) SyncRecipes(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	recipes, errs := a.recipeStore.ListAll()
	res.Failed = append(res.Failed, errs...)
	for _, err := range errs {
		a.logger.Warn("Skipping recipe file", zap.Error(err))
	}

	for _, rec := range recipes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		existing, err := a.recipeRepo.Get(ctx, rec.ID)
		if err != nil {
			return res, fmt.Errorf("failed to look up recipe %s: %w", rec.ID, err)
		}
		if existing != nil && rec.UpdatedAt != "" && existing.UpdatedAt == rec.UpdatedAt {
			res.Unchanged++
			continue
		}
		if err := a.recipeRepo.Save(ctx, rec); err != nil {
			a.logger.Warn("Failed to save recipe", zap.String("recipe_id", rec.ID), zap.Error(err))
			res.Failed = append(res.Failed, err)
			continue
		}
		res.Saved++
		a.logger.Info("Synced recipe", zap.String("recipe_id", rec.ID), zap.String("title", rec.Title))
	}
	return res, nil
}

// ClipRecipe imports the recipe at url and saves it to the library.
func (a *App) ClipRecipe(ctx context.Context, url string) (*recipe.Recipe, error) {
	rec, err := a.clipper.ClipURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := a.library.Save(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Close releases the database and the Redis connection.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}

// Library is the recipe collection: the database copy the planner reads and
// the YAML files people edit by hand.
type Library struct {
	repo   *recipe.Repository
	files  *storage.RecipeStore
	logger *zap.Logger
}

// Save writes rec to the database and then to the recipe directory. A file
// write failure is logged; the recipe is usable once it is in the database.
func (l *Library) Save(ctx context.Context, rec recipe.Recipe) error {
	if err := l.repo.Save(ctx, rec); err != nil {
		return err
	}
	if err := l.files.Save(rec); err != nil {
		l.logger.Warn("Failed to write recipe file", zap.String("recipe_id", rec.ID), zap.Error(err))
	}
	return nil
}
