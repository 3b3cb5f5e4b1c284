package faq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/vraagbaak/faq/internal/fetch"
)

const pageV1 = `<html><body>
<h2>Veelgestelde vragen</h2>
<h3>Hoe kan ik mijn bestelling retourneren?</h3>
<p>U kunt uw bestelling binnen 30 dagen retourneren via het retourportaal op onze website.</p>
<h3>Wat zijn de verzendkosten?</h3>
<p>Verzending binnen Nederland kost 4,95 euro en is gratis boven de vijftig euro.</p>
</body></html>`

const pageV2 = `<html><body>
<h2>Veelgestelde vragen</h2>
<h3>Hoe kan ik mijn bestelling retourneren?</h3>
<p>U kunt uw bestelling voortaan binnen 60 dagen retourneren via het retourportaal op onze website.</p>
<h3>Wat zijn de verzendkosten?</h3>
<p>Verzending binnen Nederland kost 4,95 euro en is gratis boven de vijftig euro.</p>
</body></html>`

const pageV3 = `<html><body>
<h2>Veelgestelde vragen</h2>
<h3>Hoe kan ik mijn bestelling retourneren?</h3>
<p>U kunt uw bestelling binnen 30 dagen retourneren via het retourportaal op onze website.</p>
</body></html>`

// seedContext creates a context with one stubbed source and returns the
// source URL.
func seedContext(t *testing.T, svc *Service, provider *stubProvider, slug, body string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.CreateContext(ctx, slug, ""); err != nil {
		t.Fatal(err)
	}
	url := "https://example.com/" + slug + "/faq"
	if _, err := svc.AddSource(ctx, slug, "faq", url); err != nil {
		t.Fatal(err)
	}
	provider.set(url, body)
	return url
}

// WHAT: A first extraction run turns page questions into published
// items, each carrying a "new" change record.
func TestRunExtraction_NewItems(t *testing.T) {
	provider := newStubProvider()
	svc := newTestService(t, nil, provider)
	seedContext(t, svc, provider, "webshop", pageV1)
	ctx := context.Background()

	res, err := svc.RunExtraction(ctx, "webshop")
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied.New != 2 {
		t.Fatalf("new = %d, want 2", res.Applied.New)
	}
	if res.Degraded {
		t.Fatal("degraded without failures")
	}

	items, err := svc.Items(ctx, "webshop", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(items.Items))
	}
	for _, it := range items.Items {
		if it.Badge != "new" {
			t.Fatalf("badge = %q, want new", it.Badge)
		}
	}
}

// WHAT: An answer change produces an UPDATED classification and the
// item view exposes the before/after pair.
func TestRunExtraction_UpdatedAnswer(t *testing.T) {
	provider := newStubProvider()
	svc := newTestService(t, nil, provider)
	url := seedContext(t, svc, provider, "webshop", pageV1)
	ctx := context.Background()

	if _, err := svc.RunExtraction(ctx, "webshop"); err != nil {
		t.Fatal(err)
	}
	provider.set(url, pageV2)

	res, err := svc.RunExtraction(ctx, "webshop")
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied.Updated != 1 || res.Applied.Unchanged != 1 || res.Applied.Stale != 0 {
		t.Fatalf("applied = %+v", res.Applied)
	}

	items, err := svc.Items(ctx, "webshop", "")
	if err != nil {
		t.Fatal(err)
	}
	var updated *ItemView
	for i := range items.Items {
		if items.Items[i].Badge == "updated" {
			updated = &items.Items[i]
		}
	}
	if updated == nil {
		t.Fatal("no item with updated badge")
	}
	if updated.Change == nil {
		t.Fatal("updated item has no change view")
	}
	if !strings.Contains(updated.Change.BeforeAnswer, "30 dagen") ||
		!strings.Contains(updated.Change.AfterAnswer, "60 dagen") {
		t.Fatalf("change = %+v", updated.Change)
	}
}

// WHAT: A question that disappears from a healthy batch goes stale: it
// is unpublished and leaves the item list.
func TestRunExtraction_Stale(t *testing.T) {
	provider := newStubProvider()
	svc := newTestService(t, nil, provider)
	url := seedContext(t, svc, provider, "webshop", pageV1)
	ctx := context.Background()

	if _, err := svc.RunExtraction(ctx, "webshop"); err != nil {
		t.Fatal(err)
	}
	provider.set(url, pageV3)

	res, err := svc.RunExtraction(ctx, "webshop")
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied.Stale != 1 {
		t.Fatalf("stale = %d, want 1", res.Applied.Stale)
	}

	items, err := svc.Items(ctx, "webshop", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(items.Items))
	}
}

// WHAT: When any source in a batch fails, the batch is degraded and no
// item is marked stale, however absent.
// WHY: A fetch failure proves nothing about the page's content;
// unpublishing on partial data would flap items on every outage.
func TestRunExtraction_DegradedSuppressesStale(t *testing.T) {
	provider := newStubProvider()
	svc := newTestService(t, nil, provider)
	url := seedContext(t, svc, provider, "webshop", pageV1)
	ctx := context.Background()

	if _, err := svc.RunExtraction(ctx, "webshop"); err != nil {
		t.Fatal(err)
	}
	provider.setErr(url, errors.New("connection refused"))

	res, err := svc.RunExtraction(ctx, "webshop")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Degraded {
		t.Fatal("batch not degraded")
	}
	if len(res.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(res.Failures))
	}
	if res.Applied.Stale != 0 {
		t.Fatalf("stale = %d, want 0 in degraded batch", res.Applied.Stale)
	}

	items, err := svc.Items(ctx, "webshop", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items.Items) != 2 {
		t.Fatalf("items = %d, want 2 (nothing unpublished)", len(items.Items))
	}
}

// WHAT: An unchanged conditional fetch reaffirms the source's stored
// items instead of staling them, and writes no new change records.
func TestRunExtraction_UnchangedReaffirms(t *testing.T) {
	provider := newStubProvider()
	svc := newTestService(t, nil, provider)
	url := seedContext(t, svc, provider, "webshop", pageV1)
	ctx := context.Background()

	if _, err := svc.RunExtraction(ctx, "webshop"); err != nil {
		t.Fatal(err)
	}
	provider.setUnchanged(url)

	res, err := svc.RunExtraction(ctx, "webshop")
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied.Unchanged != 2 || res.Applied.Stale != 0 || res.Applied.New != 0 {
		t.Fatalf("applied = %+v", res.Applied)
	}

	items, err := svc.Items(ctx, "webshop", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(items.Items))
	}
	// Latest change per item is still the original "new".
	for _, it := range items.Items {
		if it.Badge != "new" {
			t.Fatalf("badge = %q, want new", it.Badge)
		}
	}
}

// WHAT: Extraction on an unknown context fails with ErrContextNotFound;
// a context without enabled sources is a no-op batch, never a mass-stale.
func TestRunExtraction_EdgeCases(t *testing.T) {
	provider := newStubProvider()
	svc := newTestService(t, nil, provider)
	ctx := context.Background()

	if _, err := svc.RunExtraction(ctx, "ghost"); !errors.Is(err, ErrContextNotFound) {
		t.Fatalf("got %v, want ErrContextNotFound", err)
	}

	if _, err := svc.CreateContext(ctx, "empty", ""); err != nil {
		t.Fatal(err)
	}
	res, err := svc.RunExtraction(ctx, "empty")
	if err != nil {
		t.Fatal(err)
	}
	if res.Sources != 0 || res.Applied != (Applied{}) {
		t.Fatalf("result = %+v", res)
	}
}

// WHAT: Each fetch attempt leaves a fetch_log entry with its status.
func TestRunExtraction_FetchLog(t *testing.T) {
	provider := newStubProvider()
	svc := newTestService(t, nil, provider)
	seedContext(t, svc, provider, "webshop", pageV1)
	ctx := context.Background()

	if _, err := svc.RunExtraction(ctx, "webshop"); err != nil {
		t.Fatal(err)
	}

	sources, err := svc.ListSources(ctx, "webshop")
	if err != nil {
		t.Fatal(err)
	}
	history, err := svc.store.FetchHistory(ctx, sources[0].ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d, want 1", len(history))
	}
	if history[0].Status != "ok" || history[0].StatusCode != 200 {
		t.Fatalf("entry = %+v", history[0])
	}
	if sources[0].LastStatus != "ok" || sources[0].LastHash == "" {
		t.Fatalf("source = %+v", sources[0])
	}
}

// WHAT: A search query switches the item list to relevance order and
// highlights matches in the rendered text.
// blockingProvider wraps a stubProvider, holds every fetch until
// released and counts invocations.
type blockingProvider struct {
	inner   *stubProvider
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int64
}

func (p *blockingProvider) Fetch(ctx context.Context, url, etag, lastMod, prevHash string) (*fetch.Result, error) {
	p.calls.Add(1)
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return p.inner.Fetch(ctx, url, etag, lastMod, prevHash)
}

// WHAT: Concurrent extraction runs for one context coalesce into a
// single run; both callers get the same result and the provider is hit
// once per source.
// WHY: crawl-triggered runs can race; duplicate batches would double
// the change records and the fetch traffic.
func TestRunExtraction_ConcurrentRunsCoalesce(t *testing.T) {
	inner := newStubProvider()
	provider := &blockingProvider{
		inner:   inner,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestService(t, nil, provider)
	seedContext(t, svc, inner, "webshop", pageV1)

	var wg sync.WaitGroup
	results := make([]*BatchResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.RunExtraction(context.Background(), "webshop")
		}(i)
	}

	<-provider.entered
	// Give the second caller time to join the in-flight run before the
	// fetch completes.
	time.Sleep(100 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if got := provider.calls.Load(); got != 1 {
		t.Fatalf("provider calls = %d, want 1", got)
	}
	if results[0] != results[1] {
		t.Error("concurrent callers did not share one run's result")
	}
	if results[0].Applied.New != 2 {
		t.Errorf("applied = %+v", results[0].Applied)
	}
}

func TestItems_Search(t *testing.T) {
	provider := newStubProvider()
	svc := newTestService(t, nil, provider)
	seedContext(t, svc, provider, "webshop", pageV1)
	ctx := context.Background()

	if _, err := svc.RunExtraction(ctx, "webshop"); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Items(ctx, "webshop", "verzendkosten")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(result.Items))
	}
	if !strings.Contains(result.Items[0].Question, "<mark>verzendkosten</mark>") {
		t.Fatalf("question not highlighted: %q", result.Items[0].Question)
	}
}

// WHAT: Curated ordering breaks ties between items with equal badge
// priority.
func TestItems_CuratedOrder(t *testing.T) {
	provider := newStubProvider()
	cfg := &Config{
		Contexts: []ContextConfig{{
			Slug:         "webshop",
			CuratedOrder: []string{"verzendkosten", "retourneren"},
		}},
	}
	svc := newTestService(t, cfg, provider)
	seedContext(t, svc, provider, "webshop", pageV1)
	ctx := context.Background()

	if _, err := svc.RunExtraction(ctx, "webshop"); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Items(ctx, "webshop", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(result.Items))
	}
	if !strings.Contains(result.Items[0].Question, "verzendkosten") {
		t.Fatalf("first item = %q, want verzendkosten question", result.Items[0].Question)
	}
}

// questionPage builds a FAQ page with count numbered questions starting
// at start, each with an answer long enough to pass extraction.
func questionPage(start, count int) string {
	var b strings.Builder
	b.WriteString("<html><body><h2>Veelgestelde vragen</h2>\n")
	for i := start; i < start+count; i++ {
		fmt.Fprintf(&b, "<h3>Hoe werkt optie nummer %d van het product?</h3>\n", i)
		fmt.Fprintf(&b, "<p>Optie nummer %d staat uitgebreid beschreven in de handleiding bij het product.</p>\n", i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// WHAT: The no-query read path serves every published item, not a
// truncated visible-list page.
// WHY: Multi-source contexts accumulate more items than one screen
// shows; what is visible is the client's call, dropping items from the
// API loses them everywhere.
func TestItems_ServesAllPublished(t *testing.T) {
	provider := newStubProvider()
	svc := newTestService(t, nil, provider)
	seedContext(t, svc, provider, "webshop", questionPage(0, 7))
	ctx := context.Background()

	url2 := "https://example.com/webshop/service"
	if _, err := svc.AddSource(ctx, "webshop", "service", url2); err != nil {
		t.Fatal(err)
	}
	provider.set(url2, questionPage(100, 7))

	res, err := svc.RunExtraction(ctx, "webshop")
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied.New != 14 {
		t.Fatalf("new = %d, want 14", res.Applied.New)
	}

	items, err := svc.Items(ctx, "webshop", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items.Items) != 14 {
		t.Fatalf("items = %d, want 14", len(items.Items))
	}
}

// WHAT: Context stats count published items and recent changes.
func TestStats(t *testing.T) {
	provider := newStubProvider()
	svc := newTestService(t, nil, provider)
	seedContext(t, svc, provider, "webshop", pageV1)
	ctx := context.Background()

	if _, err := svc.RunExtraction(ctx, "webshop"); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.Stats(ctx, "webshop")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.New != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}
