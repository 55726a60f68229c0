package sitemap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/websearch/indexd/internal/index"
	"github.com/websearch/indexd/internal/metrics"
)

// ManagerConfig controls the periodic sitemap discovery sweep.
type ManagerConfig struct {
	StartupDelay   time.Duration
	SweepInterval  time.Duration
	PerSiteDelay   time.Duration
	StaleAfter     time.Duration
	WebsitesPerRun int
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.StartupDelay <= 0 {
		c.StartupDelay = 30 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.PerSiteDelay <= 0 {
		c.PerSiteDelay = 2 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 7 * 24 * time.Hour
	}
	if c.WebsitesPerRun <= 0 {
		c.WebsitesPerRun = 10
	}
	return c
}

// Manager runs the background sitemap discovery loop: find websites whose
// sitemap is missing, unmapped or stale, resolve their sitemap trees and
// create pages for every discovered URL.
type Manager struct {
	websites   index.WebsiteStore
	pages      index.PageStore
	discoverer index.SitemapDiscoverer
	resolver   *Resolver
	clock      index.Clock
	limiter    *rate.Limiter
	cfg        ManagerConfig
	logger     *zap.Logger
}

// NewManager constructs a Manager.
func NewManager(
	websites index.WebsiteStore,
	pages index.PageStore,
	discoverer index.SitemapDiscoverer,
	resolver *Resolver,
	clock index.Clock,
	cfg ManagerConfig,
	logger *zap.Logger,
) *Manager {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		websites:   websites,
		pages:      pages,
		discoverer: discoverer,
		resolver:   resolver,
		clock:      clock,
		limiter:    rate.NewLimiter(rate.Every(cfg.PerSiteDelay), 1),
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks, sweeping for unmapped websites until the context finishes.
// The first sweep waits for StartupDelay so other subsystems can initialize.
func (m *Manager) Run(ctx context.Context) {
	select {
	case <-time.After(m.cfg.StartupDelay):
	case <-ctx.Done():
		return
	}
	for {
		if err := m.sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("sitemap sweep failed", zap.Error(err))
			metrics.ObserveLoopError("sitemap")
		}
		select {
		case <-time.After(m.cfg.SweepInterval):
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) sweep(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sitemap sweep panic: %v", rec)
		}
	}()
	staleBefore := m.clock.Now().Add(-m.cfg.StaleAfter)
	websites, err := m.websites.NeedingSitemap(ctx, staleBefore, m.cfg.WebsitesPerRun)
	if err != nil {
		return err
	}
	if len(websites) == 0 {
		m.logger.Debug("no websites need sitemap discovery")
		return nil
	}
	m.logger.Info("sitemap sweep started", zap.Int("websites", len(websites)))

	for _, site := range websites {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := m.mapWebsite(ctx, site); err != nil {
			if ctx.Err() != nil {
				return err
			}
			// One bad website must not abort the sweep.
			m.logger.Warn("sitemap discovery failed",
				zap.Int64("website_id", site.ID),
				zap.String("host", site.Host),
				zap.Error(err),
			)
			metrics.ObserveSitemapDiscovery("error")
		}
	}
	return nil
}

func (m *Manager) mapWebsite(ctx context.Context, site index.Website) error {
	data, err := m.discoverer.DiscoverSitemap(ctx, baseURL(site.Host))
	if err != nil {
		return err
	}
	root, err := m.resolver.Resolve(data)
	if err != nil {
		return err
	}
	if err := m.websites.SaveSitemap(ctx, site.ID, root); err != nil {
		return err
	}
	entries := Flatten(root)
	created, err := m.pages.CreateFromURLEntries(ctx, site.ID, entries)
	if err != nil {
		return err
	}
	m.logger.Info("sitemap mapped",
		zap.String("host", site.Host),
		zap.Int("urls", len(entries)),
		zap.Int("pages_created", created),
	)
	metrics.ObserveSitemapDiscovery("ok")
	return nil
}

func baseURL(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}
