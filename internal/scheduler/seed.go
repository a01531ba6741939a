package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/events"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/sources/homepage"
)

// Mutator issues client mutations. Seeded bookmarks go through the same
// publish path as API calls.
type Mutator interface {
	Resolve(ctx context.Context, kind domain.MutationKind, args events.Args) events.Result
}

// SeedReport summarizes one import.
type SeedReport struct {
	Created int
	Deleted int
	Failed  int
}

// BookmarkSeeder periodically imports a Homepage bookmarks.yaml.
// Every entry is published as createBookmark; entries that disappeared
// since the previous import are published as deleteBookmark.
type BookmarkSeeder struct {
	loader        *homepage.BookmarkLoader
	mapper        *homepage.BookmarkMapper
	mutator       Mutator
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}

	mu       sync.Mutex
	imported map[string]bool
}

// NewBookmarkSeeder creates a seeder for bookmarkFile.
func NewBookmarkSeeder(
	bookmarkFile string,
	mutator Mutator,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *BookmarkSeeder {
	return &BookmarkSeeder{
		loader:        homepage.NewBookmarkLoader(bookmarkFile),
		mapper:        homepage.NewBookmarkMapper(),
		mutator:       mutator,
		logger:        log.With(logger.Component("seeder")),
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start imports once, then keeps importing on every tick and manual
// trigger until Stop or ctx cancellation.
func (bs *BookmarkSeeder) Start(ctx context.Context) error {
	if _, err := bs.Seed(ctx); err != nil {
		return fmt.Errorf("initial bookmark seed failed: %w", err)
	}

	ticker := time.NewTicker(bs.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bs.seedLogged(ctx)
			case <-bs.manualTrigger:
				bs.logger.Info("manual bookmark seed triggered")
				bs.seedLogged(ctx)
			case <-bs.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the periodic import.
func (bs *BookmarkSeeder) Stop() {
	bs.stopOnce.Do(func() { close(bs.stopCh) })
}

func (bs *BookmarkSeeder) seedLogged(ctx context.Context) {
	if _, err := bs.Seed(ctx); err != nil {
		bs.logger.Error("failed to seed bookmarks", logger.Error(err))
	}
}

// Seed loads the file and publishes the resulting mutations. A bookmark
// whose publish failed stays eligible for deletion on the next import.
func (bs *BookmarkSeeder) Seed(ctx context.Context) (SeedReport, error) {
	var report SeedReport

	config, err := bs.loader.Load()
	if err != nil {
		return report, fmt.Errorf("failed to load bookmarks: %w", err)
	}

	bookmarks, err := bs.mapper.MapBookmarks(config)
	if err != nil {
		return report, fmt.Errorf("failed to map bookmarks: %w", err)
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	current := make(map[string]bool, len(bookmarks))
	for _, b := range bookmarks {
		current[b.ID] = true
		if !bs.publish(ctx, domain.CreateBookmark, events.Args{Task: b}, b.ID) {
			report.Failed++
			continue
		}
		report.Created++
	}

	for id := range bs.imported {
		if current[id] {
			continue
		}
		if !bs.publish(ctx, domain.DeleteBookmark, events.Args{TaskID: id}, id) {
			report.Failed++
			current[id] = true
			continue
		}
		report.Deleted++
	}

	bs.imported = current

	bs.logger.Info("bookmarks seeded",
		logger.String("file", bs.loader.Path()),
		logger.Int("created", report.Created),
		logger.Int("deleted", report.Deleted),
		logger.Int("failed", report.Failed))

	return report, nil
}

func (bs *BookmarkSeeder) publish(ctx context.Context, kind domain.MutationKind, args events.Args, id string) bool {
	res := bs.mutator.Resolve(ctx, kind, args)
	if res.OK() {
		return true
	}
	bs.logger.Warn("seed mutation rejected",
		logger.String("mutation", kind.String()),
		logger.String("bookmark_id", id),
		logger.String("error_type", res.Error.Type),
		logger.String("error", res.Error.Message))
	return false
}
