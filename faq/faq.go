package faq

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/hazyhaar/vraagbaak/faq/internal/buffer"
	"github.com/hazyhaar/vraagbaak/faq/internal/extract"
	"github.com/hazyhaar/vraagbaak/faq/internal/fetch"
	"github.com/hazyhaar/vraagbaak/faq/internal/store"
	"github.com/hazyhaar/vraagbaak/idgen"
)

// PageProvider retrieves one source page. *fetch.Fetcher satisfies it;
// tests substitute a stub.
type PageProvider interface {
	Fetch(ctx context.Context, url, etag, lastMod, prevHash string) (*fetch.Result, error)
}

// Service is the FAQ orchestrator: context and source administration,
// extraction runs, and client-facing reads.
type Service struct {
	store     *store.Store
	provider  PageProvider
	extractor *extract.Extractor
	buffer    *buffer.Writer
	logger    *slog.Logger
	config    *Config
	newID     func() string

	// runs coalesces concurrent extraction calls per context slug.
	runs singleflight.Group
}

// ServiceOption configures optional service dependencies.
type ServiceOption func(*Service)

// WithPageProvider replaces the HTTP fetcher, for tests.
func WithPageProvider(p PageProvider) ServiceOption {
	return func(s *Service) { s.provider = p }
}

// WithIDGenerator replaces the ID generator, for tests.
func WithIDGenerator(gen func() string) ServiceOption {
	return func(s *Service) { s.newID = gen }
}

// New creates a Service on an open database. The schema must already be
// applied (dbopen.WithSchema(store.Schema)).
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) *Service {
	if cfg == nil {
		cfg = defaultConfig()
	} else {
		cfg.defaults()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		store:     store.NewStore(db),
		extractor: extract.New(cfg.Extract),
		logger:    logger,
		config:    cfg,
		newID:     idgen.New,
	}
	if cfg.BufferDir != "" {
		s.buffer = buffer.NewWriter(cfg.BufferDir)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.provider == nil {
		s.provider = fetch.New(cfg.Fetch)
	}
	return s
}

var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// CreateContext registers a new context under a unique slug.
func (s *Service) CreateContext(ctx context.Context, slug, name string) (*Context, error) {
	if !slugRe.MatchString(slug) {
		return nil, fmt.Errorf("%w: slug must match %s", ErrInvalidInput, slugRe)
	}
	if name == "" {
		name = slug
	}

	existing, err := s.store.GetContextBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("lookup context: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: context %q already exists", ErrInvalidInput, slug)
	}

	c := &Context{ID: s.newID(), Slug: slug, Name: name}
	if err := s.store.InsertContext(ctx, c); err != nil {
		return nil, fmt.Errorf("insert context: %w", err)
	}
	s.logger.Info("context created", "slug", slug, "context_id", c.ID)
	return c, nil
}

// GetContext returns a context by slug.
func (s *Service) GetContext(ctx context.Context, slug string) (*Context, error) {
	c, err := s.store.GetContextBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("lookup context: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, slug)
	}
	return c, nil
}

// ListContexts returns all contexts, oldest first.
func (s *Service) ListContexts(ctx context.Context) ([]*Context, error) {
	return s.store.ListContexts(ctx)
}

// AddSource registers a monitored page under a context. The URL is
// normalized before the duplicate check so trivially different
// spellings of the same page collapse.
func (s *Service) AddSource(ctx context.Context, slug, name, rawURL string) (*Source, error) {
	c, err := s.GetContext(ctx, slug)
	if err != nil {
		return nil, err
	}

	normalized, err := NormalizeSourceURL(rawURL)
	if err != nil {
		return nil, err
	}
	if err := fetch.ValidateURL(normalized); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	existing, err := s.store.GetSourceByURL(ctx, c.ID, normalized)
	if err != nil {
		return nil, fmt.Errorf("lookup source: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, normalized)
	}

	count, err := s.store.CountSources(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("count sources: %w", err)
	}
	if count >= s.config.MaxSourcesPerContext {
		return nil, fmt.Errorf("%w: max %d sources per context", ErrQuotaExceeded, s.config.MaxSourcesPerContext)
	}

	if name == "" {
		name = normalized
	}
	src := &Source{
		ID:        s.newID(),
		ContextID: c.ID,
		Name:      name,
		URL:       normalized,
		Enabled:   true,
	}
	if err := s.store.InsertSource(ctx, src); err != nil {
		return nil, fmt.Errorf("insert source: %w", err)
	}
	s.logger.Info("source added", "slug", slug, "source_id", src.ID, "url", normalized)
	return src, nil
}

// ListSources returns a context's sources.
func (s *Service) ListSources(ctx context.Context, slug string) ([]*Source, error) {
	c, err := s.GetContext(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.store.ListSources(ctx, c.ID)
}

// DeleteSource removes a source from a context. Items extracted from it
// remain; only future runs stop observing the page.
func (s *Service) DeleteSource(ctx context.Context, slug, sourceID string) error {
	c, err := s.GetContext(ctx, slug)
	if err != nil {
		return err
	}
	src, err := s.store.GetSource(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("lookup source: %w", err)
	}
	if src == nil || src.ContextID != c.ID {
		return fmt.Errorf("%w: source %s", ErrInvalidInput, sourceID)
	}
	if err := s.store.DeleteSource(ctx, sourceID); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	s.logger.Info("source deleted", "slug", slug, "source_id", sourceID)
	return nil
}

// Interaction event types accepted by RecordHit.
const (
	EventSearch = "search"
	EventClick  = "click"
)

// RecordHit stores one client interaction. A search event carries the
// query; a click event carries the item ID.
func (s *Service) RecordHit(ctx context.Context, slug, eventType, query, itemID string) error {
	c, err := s.GetContext(ctx, slug)
	if err != nil {
		return err
	}

	switch eventType {
	case EventSearch:
		if strings.TrimSpace(query) == "" {
			return fmt.Errorf("%w: search event requires a query", ErrInvalidInput)
		}
	case EventClick:
		if itemID == "" {
			return fmt.Errorf("%w: click event requires an item_id", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, eventType)
	}

	e := &Event{
		ID:        s.newID(),
		ContextID: c.ID,
		Type:      eventType,
		Query:     query,
		ItemID:    itemID,
	}
	if err := s.store.InsertEvent(ctx, e); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Stats returns aggregate counters for a context. Change counters
// respect the badge window.
func (s *Service) Stats(ctx context.Context, slug string) (*ContextStats, error) {
	c, err := s.GetContext(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.store.ContextStats(ctx, c.ID, s.badgeCutoff())
}
