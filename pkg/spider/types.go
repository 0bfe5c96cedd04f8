package spider

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MetadataRecord is one catalog entry describing a network service, as
// discovered through CSW GetRecords. Records are immutable after creation by
// the catalog client.
type MetadataRecord struct {
	// Identifier is the metadata record identifier (gmd:fileIdentifier).
	Identifier string

	Title    string
	Abstract string
	Keywords []string

	// OperatesOn is the raw xlink:href of the dataset the service operates
	// on; DatasetMetadataID is the identifier extracted from it. Empty when
	// the record does not link a dataset.
	OperatesOn        string
	DatasetMetadataID string

	// ServiceURL is the normalized capabilities URL derived from the
	// record's online resource linkage.
	ServiceURL string

	// Protocol is the declared protocol of the service endpoint.
	Protocol ProtocolType

	// Seq is the discovery order assigned by the catalog client. It is the
	// only ordering the worker pool is allowed to restore, and the
	// tie-breaker for stable sorting.
	Seq int
}

// Style describes a named layer style with an optional legend graphic.
type Style struct {
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	LegendURL string `json:"legend_url,omitempty"`
}

// Layer is the common shape for a WMS layer, WFS feature type, WCS coverage,
// WMTS layer or OGC API collection. Protocol-specific fields are left at
// their zero value (and omitted from output) where the protocol has no such
// concept.
type Layer struct {
	Name              string `json:"name"`
	Title             string `json:"title"`
	Abstract          string `json:"abstract"`
	DatasetMetadataID string `json:"dataset_metadata_id,omitempty"`

	// Styles is nil for protocols without a style concept (WFS, WCS,
	// OGC API features). WMS and WMTS adapters always set a non-nil slice,
	// possibly empty, so "no styles" is distinguishable from "not
	// applicable" in the output.
	Styles []Style `json:"styles"`

	// WMS only.
	CRS      string `json:"crs,omitempty"`
	MinScale string `json:"min_scale,omitempty"`
	MaxScale string `json:"max_scale,omitempty"`

	// WMTS only.
	TileMatrixSets string `json:"tile_matrix_sets,omitempty"`
	ImageFormats   string `json:"img_formats,omitempty"`
}

// Service is one concrete network service with its ordered layer list,
// produced by a protocol adapter from a capabilities document.
type Service struct {
	Protocol          ProtocolType `json:"protocol"`
	Title             string       `json:"title"`
	Abstract          string       `json:"abstract"`
	Keywords          []string     `json:"keywords,omitempty"`
	MetadataID        string       `json:"metadata_id"`
	DatasetMetadataID string       `json:"dataset_metadata_id,omitempty"`
	URL               string       `json:"url"`

	// OutputFormats lists the GetFeature output formats (WFS only).
	OutputFormats []string `json:"output_formats,omitempty"`

	// ImageFormats lists the GetMap formats (WMS only), comma-separated.
	ImageFormats string `json:"img_formats,omitempty"`

	Layers []Layer `json:"layers"`
}

// FlatLayer is one layer with its parent-service identifying fields inlined,
// the shape the sorter operates on and the primary downstream contract.
type FlatLayer struct {
	Layer

	ServiceMetadataID string       `json:"service_metadata_id"`
	ServiceTitle      string       `json:"service_title"`
	ServiceAbstract   string       `json:"service_abstract"`
	ServiceURL        string       `json:"service_url"`
	ServiceProtocol   ProtocolType `json:"service_protocol"`

	// DatasetMetadataIDs is the union of dataset identifiers under which
	// this layer identity was discovered. Only emitted when the layer was
	// reached through more than one dataset; the first-seen identifier
	// stays in Layer.DatasetMetadataID.
	DatasetMetadataIDs []string `json:"dataset_metadata_ids,omitempty"`

	// ServiceMetadataIDs is the union of service metadata identifiers for
	// duplicate catalog records resolving to this layer identity. Only
	// emitted when more than one distinct identifier was seen.
	ServiceMetadataIDs []string `json:"service_metadata_ids,omitempty"`
}

// Identity returns the de-duplication key for a flat layer. Two catalog
// records resolving to the same triple describe the same layer.
func (l FlatLayer) Identity() string {
	return string(l.ServiceProtocol) + "\x00" + l.ServiceURL + "\x00" + l.Name
}

// DatasetRecord is dataset-level metadata fetched by GetRecordById.
type DatasetRecord struct {
	Title      string `json:"title"`
	Abstract   string `json:"abstract"`
	MetadataID string `json:"metadata_id"`
}

// Dataset groups the services that operate on one dataset metadata record.
// Used only in datasets mode.
type Dataset struct {
	Title      string    `json:"title"`
	Abstract   string    `json:"abstract"`
	MetadataID string    `json:"metadata_id"`
	InfoURL    string    `json:"info_url,omitempty"`
	Services   []Service `json:"services"`
}

// SortRule maps layers matching one of Names (regular expressions) on one of
// the protocol Types to priority Index. Lower indices sort first. Rules are
// evaluated in file order and the first matching rule wins.
type SortRule struct {
	Index int      `json:"index"`
	Names []string `json:"names"`
	Types []string `json:"types"`
}

// LayersMode selects the aggregation shape of the layers subcommand.
type LayersMode string

const (
	ModeFlat     LayersMode = "flat"
	ModeServices LayersMode = "services"
	ModeDatasets LayersMode = "datasets"
)

// ParseLayersMode converts a CLI flag value into a LayersMode.
func ParseLayersMode(value string) (LayersMode, error) {
	switch LayersMode(value) {
	case ModeFlat, ModeServices, ModeDatasets:
		return LayersMode(value), nil
	default:
		return "", fmt.Errorf("unknown mode %q (valid: flat, services, datasets): %w", value, ErrInvalidConfig)
	}
}

// KeyStyle selects the key naming convention of the serialized output.
type KeyStyle string

const (
	KeysSnakeCase KeyStyle = "snake_case"
	KeysCamelCase KeyStyle = "camelCase"
)

// ParseKeyStyle converts a CLI flag value into a KeyStyle.
func ParseKeyStyle(value string) (KeyStyle, error) {
	switch value {
	case "snake", "snake_case":
		return KeysSnakeCase, nil
	case "camel", "camelCase":
		return KeysCamelCase, nil
	default:
		return "", fmt.Errorf("unknown key style %q (valid: snake, camel): %w", value, ErrInvalidConfig)
	}
}

// UngroupedPolicy decides what happens to services without a dataset
// metadata identifier in datasets mode.
type UngroupedPolicy string

const (
	// UngroupedDrop discards services without a dataset identifier.
	UngroupedDrop UngroupedPolicy = "drop"

	// UngroupedBucket collects them under a synthetic "ungrouped" dataset.
	UngroupedBucket UngroupedPolicy = "bucket"
)

// HarvestConfig contains all parameters needed for a harvest run.
type HarvestConfig struct {
	// CatalogURL is the CSW endpoint to query.
	CatalogURL string

	// Owner is the organisationName used in catalog queries.
	Owner string

	// Protocols restricts the harvest to the given protocol families.
	// Empty means all supported protocols.
	Protocols []ProtocolType

	// Limit caps the number of records retrieved per protocol (0 = all).
	Limit int

	// Identifier restricts the harvest to a single catalog record.
	Identifier string

	// Workers bounds the number of concurrent capability fetches.
	Workers int

	// FetchTimeout is the per-request timeout for capability fetches.
	FetchTimeout time.Duration

	// RetryAttempts is the retry budget per capability fetch.
	RetryAttempts int

	// NoFilter disables the service-URL de-duplication of catalog records.
	NoFilter bool

	// Verbose enables detailed logging.
	Verbose bool
}

// Validate checks if the HarvestConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *HarvestConfig) Validate() error {
	var errs []error

	if c.CatalogURL == "" {
		errs = append(errs, fmt.Errorf("CatalogURL is required: %w", ErrInvalidConfig))
	} else if !strings.HasPrefix(c.CatalogURL, "http://") && !strings.HasPrefix(c.CatalogURL, "https://") {
		errs = append(errs, fmt.Errorf("CatalogURL must be an http(s) URL: %w", ErrInvalidConfig))
	}

	if c.Limit < 0 {
		errs = append(errs, fmt.Errorf("limit cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers cannot be negative: %w", ErrInvalidConfig))
	}

	if c.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("fetch timeout cannot be negative: %w", ErrInvalidConfig))
	}

	for _, p := range c.Protocols {
		if !IsValidProtocol(string(p)) {
			errs = append(errs, fmt.Errorf("invalid protocol %q: %w", p, ErrInvalidConfig))
		}
	}

	return errors.Join(errs...)
}

// ApplyDefaults fills unset fields with package defaults.
func (c *HarvestConfig) ApplyDefaults() {
	if c.CatalogURL == "" {
		c.CatalogURL = DefaultCatalogURL
	}
	if c.Owner == "" {
		c.Owner = DefaultOwner
	}
	if len(c.Protocols) == 0 {
		c.Protocols = append([]ProtocolType(nil), Protocols...)
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = DefaultRetryMaxAttempts
	}
}

// ParseProtocols converts a comma-separated protocol list into ProtocolTypes.
func ParseProtocols(value string) ([]ProtocolType, error) {
	if value == "" {
		return nil, nil
	}
	var result []ProtocolType
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if !IsValidProtocol(part) {
			return nil, fmt.Errorf("invalid protocol %q: %w", part, ErrInvalidConfig)
		}
		result = append(result, ProtocolType(part))
	}
	return result, nil
}
