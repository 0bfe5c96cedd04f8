package capabilities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"geospider/internal/retry"
	"geospider/pkg/spider"
)

// ErrSecureEndpoint marks a record whose service URL points at an
// access-restricted host. Such services are skipped, not treated as
// failures.
var ErrSecureEndpoint = errors.New("secured endpoint, skipping")

// Fetcher retrieves capability documents over HTTP with bounded retry.
// Safe for concurrent use from worker goroutines.
type Fetcher struct {
	httpClient *http.Client
	executor   *retry.Executor
	timeout    time.Duration
	logger     spider.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherHTTPClient overrides the HTTP client, used by tests.
func WithFetcherHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = hc
	}
}

// WithExecutor overrides the retry executor, used by tests to avoid real
// backoff delays.
func WithExecutor(e *retry.Executor) FetcherOption {
	return func(f *Fetcher) {
		f.executor = e
	}
}

// NewFetcher creates a capability fetcher. Retry budget and per-request
// timeout come from the harvest configuration.
func NewFetcher(cfg *spider.HarvestConfig, logger spider.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{},
		executor: retry.NewExecutor(
			retry.NewHTTPErrorClassifier(),
			retry.NewExponentialBackoff(cfg.RetryAttempts,
				retry.WithInitialDelay(spider.DefaultRetryInitialDelay),
				retry.WithMaxDelay(spider.DefaultRetryMaxDelay),
			),
		),
		timeout: cfg.FetchTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.executor = f.executor.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		logger.Verbose("retrying capability fetch (attempt %d, waiting %s): %v", attempt+1, delay, err)
	})
	return f
}

// Fetch retrieves the raw capability material for one catalog record. For
// the XML protocols that is a single GET of the capabilities URL; for the
// OGC API protocols the landing page links are resolved to the collections
// or tiles document. Returns ErrSecureEndpoint for access-restricted hosts
// and an error wrapping spider.ErrServiceUnreachable when the endpoint
// cannot be reached within the retry budget.
func (f *Fetcher) Fetch(ctx context.Context, record spider.MetadataRecord) (*RawDocument, error) {
	if spider.IsSecureURL(record.ServiceURL) {
		return nil, fmt.Errorf("%s: %w", record.ServiceURL, ErrSecureEndpoint)
	}

	switch record.Protocol {
	case spider.ProtocolOAF, spider.ProtocolOAT:
		return f.fetchOGCAPI(ctx, record)
	default:
		body, err := f.get(ctx, record.ServiceURL)
		if err != nil {
			return nil, err
		}
		return &RawDocument{URL: record.ServiceURL, Body: body}, nil
	}
}

// fetchOGCAPI resolves the landing page of an OGC API service and follows
// the relevant links so the adapter never has to touch the network.
func (f *Fetcher) fetchOGCAPI(ctx context.Context, record spider.MetadataRecord) (*RawDocument, error) {
	landingBody, err := f.get(ctx, record.ServiceURL)
	if err != nil {
		return nil, err
	}

	var landing oapiLanding
	if err := json.Unmarshal(landingBody, &landing); err != nil {
		return nil, fmt.Errorf("parsing landing page %s: %v: %w", record.ServiceURL, err, spider.ErrCapabilityParse)
	}

	doc := &RawDocument{URL: record.ServiceURL, Landing: landingBody}

	var bodyURL string
	switch record.Protocol {
	case spider.ProtocolOAF:
		bodyURL = landing.linkByRel("data")
	case spider.ProtocolOAT:
		bodyURL = landing.linkByRelSuffix("tilesets-vector")
		if bodyURL == "" {
			bodyURL = landing.linkByRel("tiles")
		}
	}
	if bodyURL == "" {
		return nil, fmt.Errorf("landing page %s advertises no %s link: %w",
			record.ServiceURL, record.Protocol, spider.ErrCapabilityParse)
	}

	doc.Body, err = f.get(ctx, bodyURL)
	if err != nil {
		return nil, err
	}

	if stylesURL := landing.linkByRelSuffix("styles"); stylesURL != "" {
		styles, err := f.get(ctx, stylesURL)
		if err != nil {
			// Styles are decoration; a broken styles endpoint must not fail
			// the service.
			f.logger.Verbose("could not fetch styles document %s: %v", stylesURL, err)
		} else {
			doc.Styles = styles
		}
	}
	return doc, nil
}

// get performs one retried GET. Every attempt gets its own timeout so a
// hanging endpoint cannot consume the whole run.
func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := f.executor.Execute(ctx, func(ctx context.Context) error {
		attemptCtx := ctx
		if f.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, f.timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &retry.HTTPStatusError{StatusCode: resp.StatusCode, URL: rawURL}
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %v: %w", rawURL, err, spider.ErrServiceUnreachable)
	}
	return body, nil
}

// oapiLanding is the landing page of an OGC API service.
type oapiLanding struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Links       []oapiLink `json:"links"`
}

type oapiLink struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// linkByRel returns the href of the first link whose rel matches exactly.
func (l oapiLanding) linkByRel(rel string) string {
	for _, link := range l.Links {
		if link.Rel == rel {
			return link.Href
		}
	}
	return ""
}

// linkByRelSuffix matches rels that are full URIs, e.g.
// "http://www.opengis.net/def/rel/ogc/1.0/tilesets-vector".
func (l oapiLanding) linkByRelSuffix(suffix string) string {
	for _, link := range l.Links {
		if strings.HasSuffix(link.Rel, suffix) {
			return link.Href
		}
	}
	return ""
}
