package store

// Change types recorded in the changes log.
const (
	ChangeNew     = "new"
	ChangeUpdated = "updated"
	ChangeStale   = "stale"
)

// Context is one content owner.
type Context struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// Source is one monitored page of a context.
type Source struct {
	ID            string `json:"id"`
	ContextID     string `json:"context_id"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	Enabled       bool   `json:"enabled"`
	LastFetchedAt *int64 `json:"last_fetched_at,omitempty"`
	LastHash      string `json:"last_hash"`
	LastStatus    string `json:"last_status"`
	LastError     string `json:"last_error"`
	FailCount     int    `json:"fail_count"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// Item is one canonical Q&A record. published=false marks it suppressed
// after going stale; the row stays so history and identity survive a
// comeback.
type Item struct {
	ID           string `json:"id"`
	ContextID    string `json:"context_id"`
	SourceID     string `json:"source_id"`
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	CanonicalKey string `json:"canonical_key"`
	Published    bool   `json:"published"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// ChangeRecord is one entry of the append-only change log.
type ChangeRecord struct {
	ID           string `json:"id"`
	ItemID       string `json:"item_id"`
	ChangeType   string `json:"change_type"`
	BeforeAnswer string `json:"before_answer,omitempty"`
	AfterAnswer  string `json:"after_answer,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// Event is one client interaction (search or click).
type Event struct {
	ID        string `json:"id"`
	ContextID string `json:"context_id"`
	Type      string `json:"type"`
	Query     string `json:"query,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// FetchLogEntry is one fetch attempt record.
type FetchLogEntry struct {
	ID           string `json:"id"`
	SourceID     string `json:"source_id"`
	Status       string `json:"status"`
	StatusCode   int    `json:"status_code"`
	ErrorMessage string `json:"error_message"`
	DurationMs   int64  `json:"duration_ms"`
	FetchedAt    int64  `json:"fetched_at"`
}

// ContextStats holds aggregate counters for one context.
type ContextStats struct {
	Total   int `json:"total"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Stale   int `json:"stale"`
}
