package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/Marquee/internal/catalog"
	"github.com/JustinTDCT/Marquee/internal/models"
)

type fakeCatalog struct {
	mu       sync.Mutex
	pages    []string
	featured []string
	failPage string
}

func (f *fakeCatalog) Page(_ context.Context, name string) ([]catalog.RowResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, name)
	if name == f.failPage {
		return nil, errors.New("upstream down")
	}
	return []catalog.RowResult{{}}, nil
}

func (f *fakeCatalog) Featured(_ context.Context, page string) (*models.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.featured = append(f.featured, page)
	if page == "indian" {
		return nil, catalog.ErrNoFeatured
	}
	return &models.CatalogItem{ID: 1}, nil
}

type fakeNotifier struct{ events []string }

func (f *fakeNotifier) Broadcast(event string, _ interface{}) { f.events = append(f.events, event) }

func TestWarmAllPages(t *testing.T) {
	fc, n := &fakeCatalog{}, &fakeNotifier{}
	w := NewWarmer(fc, n)

	require.NoError(t, w.Warm(context.Background(), nil))
	assert.Equal(t, catalog.PageNames, fc.pages)
	assert.Equal(t, catalog.PageNames, fc.featured)
	assert.Equal(t, []string{EventCacheWarmed}, n.events)
}

func TestWarmContinuesAfterFailure(t *testing.T) {
	fc := &fakeCatalog{failPage: "series"}
	w := NewWarmer(fc, nil)

	err := w.Warm(context.Background(), []string{"home", "series", "anime"})
	assert.ErrorContains(t, err, "warm series")
	assert.Equal(t, []string{"home", "series", "anime"}, fc.pages)
	assert.Equal(t, []string{"home", "anime"}, fc.featured)
}

func TestWarmCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fc := &fakeCatalog{}
	err := NewWarmer(fc, nil).Warm(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fc.pages)
}

func TestProcessTask(t *testing.T) {
	fc := &fakeCatalog{}
	w := NewWarmer(fc, nil)

	require.NoError(t, w.ProcessTask(context.Background(), asynq.NewTask(TaskCacheWarm, []byte(`{"pages":["anime"]}`))))
	assert.Equal(t, []string{"anime"}, fc.pages)

	err := w.ProcessTask(context.Background(), asynq.NewTask(TaskCacheWarm, []byte(`{`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestIsTaskConflict(t *testing.T) {
	assert.True(t, isTaskConflict(asynq.ErrTaskIDConflict))
	assert.True(t, isTaskConflict(errors.New("duplicate task")))
	assert.False(t, isTaskConflict(errors.New("redis down")))
}
