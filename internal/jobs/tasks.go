package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/JustinTDCT/Marquee/internal/catalog"
	"github.com/JustinTDCT/Marquee/internal/logging"
	"github.com/JustinTDCT/Marquee/internal/models"
)

const TaskCacheWarm = "cache:warm"

// EventCacheWarmed is broadcast after a warm run finishes.
const EventCacheWarmed = "cache:warmed"

type CacheWarmPayload struct {
	Pages []string `json:"pages"`
}

type Catalog interface {
	Page(ctx context.Context, name string) ([]catalog.RowResult, error)
	Featured(ctx context.Context, page string) (*models.CatalogItem, error)
}

type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// Warmer pre-fetches browse pages so the first visitor after a cache
// expiry does not wait on upstream.
type Warmer struct {
	catalog  Catalog
	notifier EventNotifier
}

func NewWarmer(c Catalog, notifier EventNotifier) *Warmer {
	return &Warmer{catalog: c, notifier: notifier}
}

// Warm loads every row and the featured title of each page. An empty list
// means all pages. The first hard error is returned after all pages ran.
func (w *Warmer) Warm(ctx context.Context, pages []string) error {
	log := logging.For("warm")
	if len(pages) == 0 {
		pages = catalog.PageNames
	}
	start := time.Now()

	var firstErr error
	warmed := 0
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := w.catalog.Page(ctx, page)
		if err != nil {
			log.WithError(err).WithField("page", page).Warn("warm page failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("warm %s: %w", page, err)
			}
			continue
		}
		if _, err := w.catalog.Featured(ctx, page); err != nil && !errors.Is(err, catalog.ErrNoFeatured) {
			log.WithError(err).WithField("page", page).Warn("warm featured failed")
		}
		warmed++
		log.WithField("page", page).Debugf("warmed %d rows", len(rows))
	}

	log.WithField("pages", warmed).Infof("cache warm finished in %s", time.Since(start).Round(time.Millisecond))
	if w.notifier != nil {
		w.notifier.Broadcast(EventCacheWarmed, map[string]interface{}{"pages": warmed})
	}
	return firstErr
}

// ProcessTask implements asynq.Handler.
func (w *Warmer) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p CacheWarmPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	return w.Warm(ctx, p.Pages)
}

func RegisterHandlers(q *Queue, w *Warmer) {
	q.RegisterHandler(TaskCacheWarm, w)
}

// EnqueueWarm schedules a warm run. Concurrent requests collapse onto one task.
func EnqueueWarm(q *Queue, pages []string) (string, error) {
	return q.EnqueueUnique(QueueLow, TaskCacheWarm, CacheWarmPayload{Pages: pages}, "cache-warm",
		asynq.MaxRetry(1), asynq.Timeout(5*time.Minute))
}
