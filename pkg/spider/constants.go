package spider

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess            = 0  // Harvest completed (possibly with per-service failures)
	ExitGeneralError       = 1  // Unknown or unclassified error
	ExitUsageError         = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic              = 3  // Internal panic (unexpected crash)
	ExitConfigError        = 10 // Invalid configuration or parameters
	ExitCatalogUnavailable = 11 // CSW catalog unreachable or returned malformed pagination
	ExitSortRuleError      = 12 // Sorting-rules file invalid (bad JSON or regex)
)

// ProtocolType identifies a geospatial service protocol family as declared
// in catalog records (gmd:protocol).
type ProtocolType string

const (
	ProtocolWMS  ProtocolType = "OGC:WMS"
	ProtocolWFS  ProtocolType = "OGC:WFS"
	ProtocolWCS  ProtocolType = "OGC:WCS"
	ProtocolWMTS ProtocolType = "OGC:WMTS"
	ProtocolOAT  ProtocolType = "OGC:API tiles"
	ProtocolOAF  ProtocolType = "OGC:API features"

	// ProtocolAtom is recognized in catalog queries but has no capability
	// adapter; Atom records are skipped during harvesting.
	ProtocolAtom ProtocolType = "INSPIRE Atom"
)

// Protocols lists every protocol with a capability adapter, in the order
// used when no protocol filter is given.
var Protocols = []ProtocolType{
	ProtocolWFS,
	ProtocolWMS,
	ProtocolWCS,
	ProtocolWMTS,
	ProtocolOAT,
	ProtocolOAF,
}

const (
	// DefaultCatalogURL is the CSW endpoint of the Dutch national
	// georegistry (NGR), the catalog this tool was built for.
	DefaultCatalogURL = "https://nationaalgeoregister.nl/geonetwork/srv/dut/csw"

	// DefaultOwner is the organisation name used in catalog queries when no
	// owner is configured.
	DefaultOwner = "Beheer PDOK"

	// CatalogPageSize is the maxRecords value used for paginated GetRecords
	// requests. GeoNetwork caps pages at 100 records.
	CatalogPageSize = 100

	// DefaultWorkers bounds the number of concurrent capability fetches.
	DefaultWorkers = 10

	// DefaultFetchTimeout is the per-request timeout for capability fetches.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 1 * time.Second

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 30 * time.Second

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts
	// for a single capability fetch.
	DefaultRetryMaxAttempts = 3
)

// IsValidProtocol reports whether value names a known protocol.
func IsValidProtocol(value string) bool {
	for _, p := range Protocols {
		if string(p) == value {
			return true
		}
	}
	return value == string(ProtocolAtom)
}
