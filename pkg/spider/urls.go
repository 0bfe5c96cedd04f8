package spider

import (
	"net/url"
	"strings"
)

// DatasetIDFromURL extracts a dataset metadata identifier from a catalog
// link (srv:operatesOn href or a layer's TC211 MetadataURL). Catalog links
// carry the identifier as a "uuid" or "id" query parameter, with
// inconsistent casing; "uuid" wins when both are present. Returns "" when no
// identifier can be extracted.
func DatasetIDFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return ""
	}
	params := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[strings.ToLower(k)] = v[0]
		}
	}
	if id := params["uuid"]; id != "" {
		return id
	}
	return params["id"]
}

// IsSecureURL reports whether a service URL points at a non-public endpoint.
// Secured layers are not meant for the general public and are skipped
// during harvesting.
func IsSecureURL(raw string) bool {
	return strings.Contains(raw, "://secure")
}
