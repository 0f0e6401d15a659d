package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/Marquee/internal/models"
)

type fakeVisits struct {
	mu     sync.Mutex
	visits []models.PageVisit
	since  time.Time
	err    error
}

func (f *fakeVisits) Record(_ context.Context, v *models.PageVisit) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits = append(f.visits, *v)
	return nil
}

func (f *fakeVisits) CountAll(context.Context) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.visits), nil
}

func (f *fakeVisits) CountSince(_ context.Context, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = since
	return 2, nil
}

func (f *fakeVisits) TopPages(context.Context, int) ([]models.PageCount, error) {
	return []models.PageCount{{Path: "/", Visits: 3}}, nil
}

type fakeProfiles int

func (f fakeProfiles) Count(context.Context) (int, error) { return int(f), nil }

type fakeClients int

func (f fakeClients) ClientCount() int { return int(f) }

func TestRecordVisit(t *testing.T) {
	visits := &fakeVisits{}
	svc := NewService(visits, fakeProfiles(0), nil)
	id := uuid.New()

	svc.RecordVisit(context.Background(), "/movies/?q=1", &id)
	svc.RecordVisit(context.Background(), "anime", nil)

	require.Len(t, visits.visits, 2)
	assert.Equal(t, "/movies", visits.visits[0].Path)
	assert.Equal(t, &id, visits.visits[0].UserID)
	assert.Equal(t, "/anime", visits.visits[1].Path)
	assert.Nil(t, visits.visits[1].UserID)
}

func TestRecordVisitSwallowsErrors(t *testing.T) {
	svc := NewService(&fakeVisits{err: errors.New("down")}, fakeProfiles(0), nil)
	assert.NotPanics(t, func() { svc.RecordVisit(context.Background(), "/", nil) })
}

func TestDashboard(t *testing.T) {
	visits := &fakeVisits{visits: make([]models.PageVisit, 5)}
	svc := NewService(visits, fakeProfiles(4), fakeClients(7))
	loc := time.FixedZone("test", 3*3600)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 15, 30, 0, 0, loc) }

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalVisits)
	assert.Equal(t, 2, stats.VisitsToday)
	assert.Equal(t, 4, stats.TotalSignups)
	assert.Equal(t, 7, stats.ActiveUsers)
	assert.Equal(t, []models.PageCount{{Path: "/", Visits: 3}}, stats.TopPages)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, loc), visits.since)
}

func TestDashboardError(t *testing.T) {
	svc := NewService(&fakeVisits{err: errors.New("down")}, fakeProfiles(1), nil)
	_, err := svc.Dashboard(context.Background())
	assert.ErrorContains(t, err, "count visits")
}

func TestNormalizePath(t *testing.T) {
	for in, want := range map[string]string{
		"":             "/",
		"/":            "/",
		"///":          "/",
		"/series/":     "/series",
		"movie/12#top": "/movie/12",
		" /admin?x=1 ": "/admin",
	} {
		assert.Equal(t, want, normalizePath(in), in)
	}
}
