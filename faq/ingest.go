package faq

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/vraagbaak/faq/internal/buffer"
	"github.com/hazyhaar/vraagbaak/faq/internal/diff"
	"github.com/hazyhaar/vraagbaak/faq/internal/extract"
	"github.com/hazyhaar/vraagbaak/faq/internal/store"
)

// fetchParallelism bounds concurrent source fetches within one batch.
const fetchParallelism = 4

// sourceOutcome is what one source contributed to a batch.
type sourceOutcome struct {
	source   *Source
	observed []diff.Observed
	reaffirm bool // content unchanged; stored items count as observed
	err      error
}

// RunExtraction fetches every enabled source of a context, extracts Q&A
// pairs, classifies them against the stored snapshot, and persists the
// outcome in one transaction. Concurrent calls for the same context
// coalesce into a single run.
func (s *Service) RunExtraction(ctx context.Context, slug string) (*BatchResult, error) {
	c, err := s.GetContext(ctx, slug)
	if err != nil {
		return nil, err
	}

	v, err, _ := s.runs.Do(slug, func() (any, error) {
		return s.runBatch(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return v.(*BatchResult), nil
}

func (s *Service) runBatch(ctx context.Context, c *Context) (*BatchResult, error) {
	all, err := s.store.ListSources(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	var sources []*Source
	for _, src := range all {
		if src.Enabled {
			sources = append(sources, src)
		}
	}

	result := &BatchResult{Context: c.Slug, Sources: len(sources)}
	if len(sources) == 0 {
		// An empty batch must not mass-stale the context.
		s.logger.Info("extraction skipped, no enabled sources", "slug", c.Slug)
		return result, nil
	}

	outcomes := make([]sourceOutcome, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)
	for i, src := range sources {
		g.Go(func() error {
			outcomes[i] = s.fetchSource(gctx, src)
			return nil
		})
	}
	g.Wait()

	var observed []diff.Observed
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			result.Degraded = true
			result.Failures = append(result.Failures, SourceFailure{
				SourceID: o.source.ID,
				URL:      o.source.URL,
				Error:    o.err.Error(),
			})
		case o.reaffirm:
			reaffirmed, err := s.reaffirmObserved(ctx, c.ID, o.source.ID)
			if err != nil {
				return nil, err
			}
			observed = append(observed, reaffirmed...)
		default:
			observed = append(observed, o.observed...)
		}
	}

	snapshot, err := s.store.Snapshot(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	// A degraded batch (any source failed) never marks items stale:
	// absence caused by a fetch failure is not disappearance.
	res := diff.Classify(observed, snapshotItems(snapshot), !result.Degraded)

	applied, err := s.store.ApplyBatch(ctx, c.ID, res)
	if err != nil {
		return nil, fmt.Errorf("apply batch: %w", err)
	}
	result.Applied = applied

	s.writeBuffer(ctx, c, res)

	s.logger.Info("extraction completed",
		"slug", c.Slug,
		"sources", result.Sources,
		"new", applied.New,
		"updated", applied.Updated,
		"unchanged", applied.Unchanged,
		"stale", applied.Stale,
		"degraded", result.Degraded,
	)
	return result, nil
}

// fetchSource retrieves one source page and extracts its Q&A pairs.
// Fetch bookkeeping (source status, fetch log) is written regardless of
// outcome.
func (s *Service) fetchSource(ctx context.Context, src *Source) sourceOutcome {
	start := time.Now()
	res, err := s.provider.Fetch(ctx, src.URL, "", "", src.LastHash)
	duration := time.Since(start).Milliseconds()

	entry := &FetchLogEntry{
		ID:         s.newID(),
		SourceID:   src.ID,
		DurationMs: duration,
	}
	if res != nil {
		entry.StatusCode = res.StatusCode
	}

	if err != nil {
		entry.Status = "error"
		entry.ErrorMessage = err.Error()
		if logErr := s.store.InsertFetchLog(ctx, entry); logErr != nil {
			s.logger.Warn("fetch log write failed", "source_id", src.ID, "error", logErr)
		}
		if recErr := s.store.RecordFetchError(ctx, src.ID, err.Error()); recErr != nil {
			s.logger.Warn("fetch status write failed", "source_id", src.ID, "error", recErr)
		}
		s.logger.Warn("source fetch failed", "source_id", src.ID, "url", src.URL, "error", err)
		return sourceOutcome{source: src, err: err}
	}

	if !res.Changed {
		entry.Status = "unchanged"
		if logErr := s.store.InsertFetchLog(ctx, entry); logErr != nil {
			s.logger.Warn("fetch log write failed", "source_id", src.ID, "error", logErr)
		}
		if recErr := s.store.RecordFetchUnchanged(ctx, src.ID); recErr != nil {
			s.logger.Warn("fetch status write failed", "source_id", src.ID, "error", recErr)
		}
		s.logger.Debug("source unchanged", "source_id", src.ID, "url", src.URL)
		return sourceOutcome{source: src, reaffirm: true}
	}

	entry.Status = "ok"
	if logErr := s.store.InsertFetchLog(ctx, entry); logErr != nil {
		s.logger.Warn("fetch log write failed", "source_id", src.ID, "error", logErr)
	}
	if recErr := s.store.RecordFetchSuccess(ctx, src.ID, res.Hash); recErr != nil {
		s.logger.Warn("fetch status write failed", "source_id", src.ID, "error", recErr)
	}

	pairs := s.extractor.Extract(string(res.Body))
	s.logger.Debug("source extracted",
		"source_id", src.ID, "url", src.URL, "pairs", len(pairs))
	return sourceOutcome{source: src, observed: s.observedPairs(pairs, src.ID)}
}

// observedPairs converts extracted pairs to classifier input, with
// content sanitized to plain text.
func (s *Service) observedPairs(pairs []extract.Pair, sourceID string) []diff.Observed {
	observed := make([]diff.Observed, 0, len(pairs))
	for _, p := range pairs {
		question := sanitizeText(p.Question)
		answer := sanitizeText(p.Answer)
		if question == "" || answer == "" {
			continue
		}
		observed = append(observed, diff.Observed{
			CanonicalKey: extract.CanonicalKey(question),
			Question:     question,
			Answer:       answer,
			AnswerHTML:   p.AnswerHTML,
			Strategy:     string(p.Strategy),
			SourceID:     sourceID,
		})
	}
	return observed
}

// reaffirmObserved re-injects a source's stored published items as
// observations. Without this, an unchanged page would look like its
// questions disappeared and the classifier would stale them.
func (s *Service) reaffirmObserved(ctx context.Context, contextID, sourceID string) ([]diff.Observed, error) {
	items, err := s.store.ListPublished(ctx, contextID)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}
	var observed []diff.Observed
	for _, it := range items {
		if it.SourceID != sourceID {
			continue
		}
		observed = append(observed, diff.Observed{
			CanonicalKey: it.CanonicalKey,
			Question:     it.Question,
			Answer:       it.Answer,
			SourceID:     sourceID,
		})
	}
	return observed, nil
}

func snapshotItems(items []*store.Item) []diff.Item {
	out := make([]diff.Item, 0, len(items))
	for _, it := range items {
		out = append(out, diff.Item{
			ID:           it.ID,
			CanonicalKey: it.CanonicalKey,
			Question:     it.Question,
			Answer:       it.Answer,
			Published:    it.Published,
		})
	}
	return out
}

// writeBuffer emits one .md snapshot per new or updated item. Buffer
// failures are logged, never fatal: the database already holds the
// truth.
func (s *Service) writeBuffer(ctx context.Context, c *Context, res diff.Result) {
	if s.buffer == nil || (len(res.New) == 0 && len(res.Updated) == 0) {
		return
	}

	items, err := s.store.Snapshot(ctx, c.ID)
	if err != nil {
		s.logger.Warn("buffer snapshot failed", "slug", c.Slug, "error", err)
		return
	}
	byKey := make(map[string]*Item, len(items))
	for _, it := range items {
		byKey[it.CanonicalKey] = it
	}

	write := func(o diff.Observed) {
		it := byKey[o.CanonicalKey]
		if it == nil {
			return
		}
		meta := buffer.Metadata{
			ID:          it.ID,
			Context:     c.Slug,
			SourceID:    o.SourceID,
			Question:    o.Question,
			Strategy:    o.Strategy,
			ExtractedAt: time.Now(),
		}
		if src, err := s.store.GetSource(ctx, o.SourceID); err == nil && src != nil {
			meta.SourceURL = src.URL
		}
		if _, err := s.buffer.WriteItem(ctx, meta, o.AnswerHTML, o.Answer); err != nil {
			s.logger.Warn("buffer write failed", "item_id", it.ID, "error", err)
		}
	}

	for _, o := range res.New {
		write(o)
	}
	for _, m := range res.Updated {
		write(m.Observed)
	}
}
