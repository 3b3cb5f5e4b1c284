// Package faq turns registered source pages into a curated,
// change-annotated Q&A list per context and serves it to an
// interactive client.
//
// The pipeline fetches each source with conditional GET, extracts Q&A
// pairs through a prioritized strategy chain, diffs them against the
// stored snapshot (new / updated / stale), and persists the outcome in
// one transaction. Reads derive badges from the append-only change log
// and order items for presentation; a live query re-ranks them
// client-style on the server.
package faq

import (
	"github.com/hazyhaar/vraagbaak/faq/internal/rank"
	"github.com/hazyhaar/vraagbaak/faq/internal/store"
)

// Schema is the SQL schema of the service, for dbopen.WithSchema.
const Schema = store.Schema

// Re-export store types for the public API.
type (
	Context       = store.Context
	Source        = store.Source
	Item          = store.Item
	ChangeRecord  = store.ChangeRecord
	Event         = store.Event
	FetchLogEntry = store.FetchLogEntry
	ContextStats  = store.ContextStats
	Applied       = store.Applied
)

// Badge re-exports the presentation badge type.
type Badge = rank.Badge

// ChangeView is the before/after pair shown next to an updated item.
type ChangeView struct {
	BeforeAnswer string `json:"before_answer,omitempty"`
	AfterAnswer  string `json:"after_answer,omitempty"`
}

// ItemView is one Q&A item as delivered to clients.
type ItemView struct {
	ID        string      `json:"id"`
	Question  string      `json:"question"`
	Answer    string      `json:"answer"`
	UpdatedAt int64       `json:"updated_at"`
	Badge     Badge       `json:"badge,omitempty"`
	Change    *ChangeView `json:"change,omitempty"`
}

// ItemsResult is the response of the item retrieval operation.
type ItemsResult struct {
	Context string        `json:"context"`
	Items   []ItemView    `json:"items"`
	Stats   *ContextStats `json:"stats,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// SourceFailure describes one source that failed during a batch.
type SourceFailure struct {
	SourceID string `json:"source_id"`
	URL      string `json:"url"`
	Error    string `json:"error"`
}

// BatchResult summarizes one extraction run over a context.
type BatchResult struct {
	Context  string          `json:"context"`
	Applied  Applied         `json:"applied"`
	Sources  int             `json:"sources"`
	Degraded bool            `json:"degraded"`
	Failures []SourceFailure `json:"failures,omitempty"`
}
