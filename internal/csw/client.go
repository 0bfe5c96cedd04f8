package csw

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"geospider/pkg/spider"
)

const (
	gmdOutputSchema = "http://www.isotc211.org/2005/gmd"

	// queryProtocolKey is the queryable GeoNetwork exposes for the online
	// resource protocol when records are requested in the gmd schema.
	queryProtocolKey = "OnlineResourceType"
)

// Client issues GetRecords and GetRecordById requests against one CSW
// endpoint. Safe for concurrent use: dataset lookups run from worker
// goroutines during datasets-mode aggregation.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	logger     spider.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPageSize overrides the GetRecords page size, used by pagination tests.
func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = n
	}
}

// NewClient creates a catalog client for the given CSW endpoint.
func NewClient(baseURL string, logger spider.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		pageSize: spider.CatalogPageSize,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProtocolQuery builds the CQL constraint selecting service records of one
// protocol owned by one organisation.
func ProtocolQuery(protocol spider.ProtocolType, owner string) string {
	return fmt.Sprintf("type='service' AND organisationName='%s' AND %s='%s'", owner, queryProtocolKey, protocol)
}

// IdentifierQuery builds the CQL constraint selecting a single record.
func IdentifierQuery(identifier string) string {
	return fmt.Sprintf("identifier='%s'", identifier)
}

// Records returns a lazy iterator over the records matching query. Pages are
// fetched on demand; at most limit records are yielded when limit > 0. Any
// page failure surfaces through Err() as a spider.ErrCatalogUnavailable:
// partial catalog results are not meaningful.
func (c *Client) Records(ctx context.Context, query string, limit int) *RecordIterator {
	pageSize := c.pageSize
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}
	return &RecordIterator{
		client:   c,
		ctx:      ctx,
		query:    query,
		limit:    limit,
		pageSize: pageSize,
		start:    1,
	}
}

// RecordIterator lazily pages through a GetRecords result set. The iterator
// can be re-entered after Next returns false only when Err() is nil and the
// set was exhausted; it is not safe for concurrent use.
type RecordIterator struct {
	client   *Client
	ctx      context.Context
	query    string
	limit    int
	pageSize int

	buf     []spider.MetadataRecord
	pos     int
	start   int
	matched int
	first   bool
	yielded int
	done    bool
	err     error
}

// Next yields the next record. It returns false when the set is exhausted,
// the limit is reached, or a page fetch failed (check Err).
func (it *RecordIterator) Next() (spider.MetadataRecord, bool) {
	for {
		if it.err != nil {
			return spider.MetadataRecord{}, false
		}
		if it.limit > 0 && it.yielded >= it.limit {
			return spider.MetadataRecord{}, false
		}
		if it.pos < len(it.buf) {
			rec := it.buf[it.pos]
			it.pos++
			it.yielded++
			return rec, true
		}
		if it.done {
			return spider.MetadataRecord{}, false
		}
		it.fetchPage()
	}
}

// Err returns the pagination error, if any, once Next has returned false.
func (it *RecordIterator) Err() error {
	return it.err
}

func (it *RecordIterator) fetchPage() {
	resp, err := it.client.getRecords(it.ctx, it.query, it.start, it.pageSize)
	if err != nil {
		it.err = err
		return
	}

	results := resp.SearchResults
	if !it.first {
		it.first = true
		it.matched = results.NumberOfRecordsMatched
	} else if it.matched != results.NumberOfRecordsMatched {
		// The result set changed underneath the pagination; offsets no
		// longer line up with what was already yielded.
		it.err = fmt.Errorf("catalog result set changed during pagination (was %d, now %d): %w",
			it.matched, results.NumberOfRecordsMatched, spider.ErrCatalogUnavailable)
		return
	}

	it.buf = it.buf[:0]
	it.pos = 0
	for _, raw := range results.Records {
		it.buf = append(it.buf, (&raw).serviceRecord())
	}

	// GeoNetwork has been seen reporting a nextRecord beyond the matched
	// count on the last page; both conditions mean the set is exhausted.
	next := results.NextRecord
	if next == 0 || next > it.matched {
		it.done = true
		return
	}
	if len(results.Records) == 0 {
		// Defensive: a non-final page without records would loop forever.
		it.err = fmt.Errorf("catalog returned empty page at position %d of %d: %w",
			it.start, it.matched, spider.ErrCatalogUnavailable)
		return
	}
	it.start = next
}

// ServiceRecords retrieves the service records for every configured
// protocol, applies the configured client-side filtering and returns them in
// deterministic discovery order (title ascending, Seq renumbered).
func (c *Client) ServiceRecords(ctx context.Context, cfg *spider.HarvestConfig) ([]spider.MetadataRecord, error) {
	var records []spider.MetadataRecord

	if cfg.Identifier != "" {
		recs, err := c.collect(ctx, IdentifierQuery(cfg.Identifier), 0, nil)
		if err != nil {
			return nil, err
		}
		records = recs
	} else {
		wanted := make(map[spider.ProtocolType]bool, len(cfg.Protocols))
		for _, p := range cfg.Protocols {
			wanted[p] = true
		}
		for _, protocol := range cfg.Protocols {
			recs, err := c.collect(ctx, ProtocolQuery(protocol, cfg.Owner), cfg.Limit, wanted)
			if err != nil {
				return nil, err
			}
			c.logger.Info("found %d %s service metadata records", len(recs), protocol)
			records = append(records, recs...)
		}
	}

	if !cfg.NoFilter {
		records = FilterRecords(records)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Title < records[j].Title
	})
	for i := range records {
		records[i].Seq = i
	}
	return records, nil
}

// collect drains an iterator, discarding records whose declared protocol is
// outside the filter before they count toward anything downstream.
func (c *Client) collect(ctx context.Context, query string, limit int, wanted map[spider.ProtocolType]bool) ([]spider.MetadataRecord, error) {
	it := c.Records(ctx, query, limit)
	var records []spider.MetadataRecord
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		if wanted != nil && !wanted[rec.Protocol] {
			c.logger.Verbose("discarding record %s: protocol %q not requested", rec.Identifier, rec.Protocol)
			continue
		}
		records = append(records, rec)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// FilterRecords drops records without a service URL and de-duplicates
// records sharing one. Some endpoints have multiple service records; sorting
// by title descending first means the alphabetically first record wins the
// de-duplication.
func FilterRecords(records []spider.MetadataRecord) []spider.MetadataRecord {
	sorted := append([]spider.MetadataRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Title > sorted[j].Title
	})

	byURL := make(map[string]spider.MetadataRecord)
	var order []string
	for _, rec := range sorted {
		if rec.ServiceURL == "" {
			continue
		}
		if _, seen := byURL[rec.ServiceURL]; !seen {
			order = append(order, rec.ServiceURL)
		}
		byURL[rec.ServiceURL] = rec
	}

	result := make([]spider.MetadataRecord, 0, len(order))
	for _, u := range order {
		result = append(result, byURL[u])
	}
	return result
}

// DatasetRecord fetches dataset-level metadata by identifier. A missing
// record is logged and reported as nil: an expected dataset record being
// absent from the catalog must not fail the run.
func (c *Client) DatasetRecord(ctx context.Context, mdID string) (*spider.DatasetRecord, error) {
	params := url.Values{}
	params.Set("service", "CSW")
	params.Set("version", "2.0.2")
	params.Set("request", "GetRecordById")
	params.Set("id", mdID)
	params.Set("outputSchema", gmdOutputSchema)
	params.Set("elementSetName", "full")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp getRecordByIDResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing GetRecordById response for %s: %w", mdID, spider.ErrCatalogUnavailable)
	}
	if len(resp.Records) == 0 {
		c.logger.Error("could not find dataset with metadata_id %q, this might cause a linked service to not be indexed", mdID)
		return nil, nil
	}
	rec := resp.Records[0].datasetRecord(mdID)
	return &rec, nil
}

// RecordInfoURL returns a human-readable catalog link for a metadata record.
func (c *Client) RecordInfoURL(mdID string) string {
	params := url.Values{}
	params.Set("service", "CSW")
	params.Set("version", "2.0.2")
	params.Set("request", "GetRecordById")
	params.Set("id", mdID)
	return c.baseURL + "?" + params.Encode()
}

func (c *Client) getRecords(ctx context.Context, query string, start, max int) (*getRecordsResponse, error) {
	params := url.Values{}
	params.Set("service", "CSW")
	params.Set("version", "2.0.2")
	params.Set("request", "GetRecords")
	params.Set("resultType", "results")
	params.Set("typeNames", "gmd:MD_Metadata")
	params.Set("outputSchema", gmdOutputSchema)
	params.Set("elementSetName", "full")
	params.Set("constraintLanguage", "CQL_TEXT")
	params.Set("constraint_language_version", "1.1.0")
	params.Set("constraint", query)
	params.Set("sortBy", "CreationDate:A")
	params.Set("startPosition", fmt.Sprint(start))
	params.Set("maxRecords", fmt.Sprint(max))

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var exception cswException
	if err := xml.Unmarshal(body, &exception); err == nil && len(exception.Exceptions) > 0 {
		ex := exception.Exceptions[0]
		return nil, fmt.Errorf("catalog exception %s: %s: %w", ex.Code, ex.Text, spider.ErrCatalogUnavailable)
	}

	var resp getRecordsResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing GetRecords response: %v: %w", err, spider.ErrCatalogUnavailable)
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building catalog request: %v: %w", err, spider.ErrCatalogUnavailable)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %v: %w", err, spider.ErrCatalogUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d: %w", resp.StatusCode, spider.ErrCatalogUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading catalog response: %v: %w", err, spider.ErrCatalogUnavailable)
	}
	return body, nil
}
