// Package fetch retrieves source pages over HTTP with conditional GET
// support: ETag, If-Modified-Since, and content-hash change detection.
package fetch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Result contains the outcome of a fetch.
type Result struct {
	Body       []byte
	StatusCode int
	Hash       string // SHA-256 of body
	ETag       string // from response header
	LastMod    string // from response header
	Changed    bool   // true if content is new/different
}

// Config configures the fetcher.
type Config struct {
	Timeout  time.Duration // HTTP timeout. Default: 30s.
	MaxBytes int64         // Max response body size. Default: 10MB.
	// UserAgent sent with requests.
	UserAgent string
	// URLValidator validates URLs before fetch and on every redirect
	// (SSRF prevention). Default: ValidateURL.
	URLValidator func(string) error
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024 // 10MB
	}
	if c.UserAgent == "" {
		c.UserAgent = "vraagbaak/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = ValidateURL
	}
}

// ValidateURL accepts public http/https URLs only. Loopback, private,
// link-local (including cloud metadata) and unspecified IP literals are
// rejected, as is the localhost hostname. Source URLs come from admin
// input; this keeps a hijacked admin token from probing the internal
// network.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty host")
	}
	if host == "localhost" {
		return fmt.Errorf("host %q not allowed", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("ip %s not allowed", ip)
		}
	}
	return nil
}

// Fetcher performs HTTP requests with conditional GET.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher that re-validates the target URL on every
// redirect.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked (SSRF): %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Fetch retrieves a URL. If etag or lastMod are provided, sends
// conditional headers. Returns Changed=false on 304 Not Modified, and
// also when prevHash is provided and the body hash matches it.
func (f *Fetcher) Fetch(ctx context.Context, url, etag, lastMod, prevHash string) (*Result, error) {
	if err := f.config.URLValidator(url); err != nil {
		return nil, fmt.Errorf("URL blocked (SSRF): %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &Result{
			StatusCode: 304,
			Changed:    false,
			ETag:       resp.Header.Get("ETag"),
			LastMod:    resp.Header.Get("Last-Modified"),
		}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return &Result{StatusCode: resp.StatusCode}, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	h := sha256.Sum256(body)
	hash := fmt.Sprintf("%x", h)

	changed := prevHash == "" || hash != prevHash
	return &Result{
		Body:       body,
		StatusCode: resp.StatusCode,
		Hash:       hash,
		ETag:       resp.Header.Get("ETag"),
		LastMod:    resp.Header.Get("Last-Modified"),
		Changed:    changed,
	}, nil
}
