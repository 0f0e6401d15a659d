// Package analytics records page visits and builds the admin dashboard.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JustinTDCT/Marquee/internal/logging"
	"github.com/JustinTDCT/Marquee/internal/models"
)

const topPagesLimit = 10

type VisitStore interface {
	Record(ctx context.Context, v *models.PageVisit) error
	CountAll(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	TopPages(ctx context.Context, limit int) ([]models.PageCount, error)
}

type ProfileCounter interface {
	Count(ctx context.Context) (int, error)
}

// ClientCounter reports how many realtime clients are connected.
type ClientCounter interface {
	ClientCount() int
}

type Service struct {
	visits   VisitStore
	profiles ProfileCounter
	clients  ClientCounter
	now      func() time.Time
}

func NewService(visits VisitStore, profiles ProfileCounter, clients ClientCounter) *Service {
	return &Service{visits: visits, profiles: profiles, clients: clients, now: time.Now}
}

// RecordVisit stores one page view. userID is nil for anonymous visitors.
// Failures are logged and swallowed so tracking never breaks navigation.
func (s *Service) RecordVisit(ctx context.Context, path string, userID *uuid.UUID) {
	path = normalizePath(path)
	if err := s.visits.Record(ctx, &models.PageVisit{Path: path, UserID: userID}); err != nil {
		logging.For("analytics").WithError(err).WithField("path", path).Warn("record visit failed")
	}
}

func (s *Service) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{TopPages: []models.PageCount{}}
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.visits.CountAll(ctx)
		if err != nil {
			return fmt.Errorf("count visits: %w", err)
		}
		stats.TotalVisits = n
		return nil
	})
	g.Go(func() error {
		n, err := s.visits.CountSince(ctx, midnight)
		if err != nil {
			return fmt.Errorf("count visits today: %w", err)
		}
		stats.VisitsToday = n
		return nil
	})
	g.Go(func() error {
		n, err := s.profiles.Count(ctx)
		if err != nil {
			return fmt.Errorf("count profiles: %w", err)
		}
		stats.TotalSignups = n
		return nil
	})
	g.Go(func() error {
		pages, err := s.visits.TopPages(ctx, topPagesLimit)
		if err != nil {
			return fmt.Errorf("top pages: %w", err)
		}
		if pages != nil {
			stats.TopPages = pages
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.clients != nil {
		stats.ActiveUsers = s.clients.ClientCount()
	}
	return stats, nil
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
