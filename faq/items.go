package faq

import (
	"context"
	"strings"
	"time"

	"github.com/hazyhaar/vraagbaak/faq/internal/rank"
	"github.com/hazyhaar/vraagbaak/faq/internal/store"
)

// badgeCutoff returns the oldest change timestamp that still produces a
// badge. Zero means no window.
func (s *Service) badgeCutoff() int64 {
	if s.config.BadgeWindow <= 0 {
		return 0
	}
	return time.Now().Add(-s.config.BadgeWindow).UnixMilli()
}

func badgeFor(rec *store.ChangeRecord) Badge {
	if rec == nil {
		return rank.BadgeNone
	}
	switch rec.ChangeType {
	case store.ChangeNew:
		return rank.BadgeNew
	case store.ChangeUpdated:
		return rank.BadgeUpdated
	case store.ChangeStale:
		return rank.BadgeStale
	}
	return rank.BadgeNone
}

// Items returns a context's published items in presentation order. A
// non-empty query switches to relevance ranking with match
// highlighting. Storage trouble degrades to a well-formed empty result
// instead of an error; only an unknown context fails.
func (s *Service) Items(ctx context.Context, slug, query string) (*ItemsResult, error) {
	c, err := s.GetContext(ctx, slug)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListPublished(ctx, c.ID)
	if err != nil {
		s.logger.Error("item listing failed", "slug", slug, "error", err)
		return &ItemsResult{
			Context: slug,
			Items:   []ItemView{},
			Error:   "temporarily unavailable",
		}, nil
	}

	changes, err := s.store.LatestChanges(ctx, c.ID, s.badgeCutoff())
	if err != nil {
		// Items still render, just without badges.
		s.logger.Warn("change lookup failed", "slug", slug, "error", err)
		changes = nil
	}

	byID := make(map[string]*Item, len(items))
	rankItems := make([]rank.Item, 0, len(items))
	for _, it := range items {
		byID[it.ID] = it
		rankItems = append(rankItems, rank.Item{
			ID:       it.ID,
			Question: it.Question,
			Answer:   it.Answer,
			Badge:    badgeFor(changes[it.ID]),
		})
	}

	result := &ItemsResult{Context: slug, Items: []ItemView{}}

	if strings.TrimSpace(query) != "" {
		for _, r := range rank.Rank(rankItems, query) {
			view := s.itemView(r.Item, byID, changes)
			view.Question = rank.Highlight(view.Question, query)
			view.Answer = rank.Highlight(view.Answer, query)
			result.Items = append(result.Items, view)
		}
	} else {
		// No cap here: the full published set is served and the client
		// decides how many to show.
		for _, it := range rank.Order(rankItems, s.config.CuratedOrder(slug)) {
			result.Items = append(result.Items, s.itemView(it, byID, changes))
		}
	}

	if stats, err := s.store.ContextStats(ctx, c.ID, s.badgeCutoff()); err == nil {
		result.Stats = stats
	}
	return result, nil
}

func (s *Service) itemView(it rank.Item, byID map[string]*Item, changes map[string]*store.ChangeRecord) ItemView {
	view := ItemView{
		ID:       it.ID,
		Question: it.Question,
		Answer:   it.Answer,
		Badge:    it.Badge,
	}
	if stored := byID[it.ID]; stored != nil {
		view.UpdatedAt = stored.UpdatedAt
	}
	if rec := changes[it.ID]; rec != nil && rec.ChangeType == store.ChangeUpdated {
		view.Change = &ChangeView{
			BeforeAnswer: rec.BeforeAnswer,
			AfterAnswer:  rec.AfterAnswer,
		}
	}
	return view
}
