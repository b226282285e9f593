// Package linkcheck reports bookmarks whose URLs no longer resolve.
package linkcheck

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nikbrunner/stash/internal/model"
)

// Status represents the health of a URL.
type Status int

const (
	Healthy     Status = iota // 2xx or 3xx response
	Dead                      // 404 or 410 Gone
	Unreachable               // timeout, DNS failure, connection refused, etc.
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

// Result holds the check result for a single bookmark.
type Result struct {
	Bookmark   model.Bookmark
	Status     Status
	StatusCode int    // 0 if the connection failed
	Error      string // set for unreachable URLs
}

// Options configures Check.
type Options struct {
	Concurrency int
	Timeout     time.Duration
	// PrivateDomains lists hosts where a 404 usually means "login required".
	// Subdomains match too.
	PrivateDomains []string
	Client         *http.Client
	// OnProgress is called after each URL with the number checked so far.
	OnProgress func(completed, total int)
}

// Check requests every bookmark URL and returns one Result per bookmark, in
// input order. Cancelling ctx aborts the run with ctx's error, even when
// every in-flight request has already finished.
func Check(ctx context.Context, bookmarks []model.Bookmark, opts Options) ([]Result, error) {
	if len(bookmarks) == 0 {
		return nil, nil
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	private := make(map[string]bool, len(opts.PrivateDomains))
	for _, domain := range opts.PrivateDomains {
		private[strings.ToLower(domain)] = true
	}

	results := make([]Result, len(bookmarks))

	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i := range bookmarks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = checkURL(gctx, client, bookmarks[i], private)

			if opts.OnProgress != nil {
				mu.Lock()
				completed++
				opts.OnProgress(completed, len(bookmarks))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Requests cut short by cancellation come back as Unreachable, not as
	// errors.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkURL(ctx context.Context, client *http.Client, b model.Bookmark, private map[string]bool) Result {
	result := Result{Bookmark: b}

	// HEAD first; some servers only answer GET
	resp, err := do(ctx, client, http.MethodHead, b.URL)
	if err != nil || resp.StatusCode == http.StatusMethodNotAllowed {
		if resp != nil {
			resp.Body.Close()
		}
		if ctx.Err() != nil {
			result.Status = Unreachable
			result.Error = normalizeError(ctx.Err().Error())
			return result
		}
		resp, err = do(ctx, client, http.MethodGet, b.URL)
		if err != nil {
			result.Status = Unreachable
			result.Error = normalizeError(err.Error())
			return result
		}
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Status = Healthy
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if isPrivateDomain(b.URL, private) {
			result.Status = Unreachable
			result.Error = "Possibly private (auth required)"
		} else {
			result.Status = Dead
		}
	default:
		// 403, 5xx and friends may be temporary
		result.Status = Unreachable
		result.Error = http.StatusText(resp.StatusCode)
	}

	return result
}

func do(ctx context.Context, client *http.Client, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

func isPrivateDomain(rawURL string, private map[string]bool) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for domain := range private {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// normalizeError simplifies verbose error messages into readable categories.
func normalizeError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"), strings.Contains(lower, "tls:"):
		return "TLS error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	default:
		return errStr
	}
}
