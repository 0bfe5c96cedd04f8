// Package serializer turns aggregated results into their output encoding.
package serializer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"geospider/pkg/spider"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ContentType returns the MIME type of the format, used for blob uploads.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Options configure one Marshal call.
type Options struct {
	Format Format

	// Pretty indents JSON output with four spaces. YAML is always indented.
	Pretty bool

	// Keys selects the key naming convention. The zero value keeps the
	// snake_case keys of the domain types.
	Keys spider.KeyStyle

	// Timestamp adds an "updated" RFC3339 field to object roots.
	Timestamp bool

	// Now overrides the timestamp source, used by tests.
	Now func() time.Time
}

// Marshal serializes v. The value is round-tripped through its JSON form so
// null fields can be stripped and keys renamed uniformly: absent fields
// disappear while empty strings and empty arrays survive.
func Marshal(v any, opts Options) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializing results: %w", err)
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("serializing results: %w", err)
	}

	tree = stripNulls(tree)

	if opts.Timestamp {
		if root, ok := tree.(map[string]any); ok {
			now := time.Now
			if opts.Now != nil {
				now = opts.Now
			}
			root["updated"] = now().UTC().Format(time.RFC3339)
		}
	}

	if opts.Keys == spider.KeysCamelCase {
		tree = renameKeys(tree)
	}

	switch opts.Format {
	case FormatYAML:
		return yaml.Marshal(tree)
	default:
		if opts.Pretty {
			return json.MarshalIndent(tree, "", "    ")
		}
		return json.Marshal(tree)
	}
}

// stripNulls removes null object fields recursively. Null array elements are
// kept: a null inside an array is data, not an absent field.
func stripNulls(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for key, entry := range val {
			if entry == nil {
				delete(val, key)
				continue
			}
			val[key] = stripNulls(entry)
		}
		return val
	case []any:
		for i, entry := range val {
			val[i] = stripNulls(entry)
		}
		return val
	default:
		return v
	}
}

// renameKeys rewrites object keys from snake_case to camelCase. Values are
// never touched.
func renameKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		renamed := make(map[string]any, len(val))
		for key, entry := range val {
			renamed[snakeToCamel(key)] = renameKeys(entry)
		}
		return renamed
	case []any:
		for i, entry := range val {
			val[i] = renameKeys(entry)
		}
		return val
	default:
		return v
	}
}

func snakeToCamel(key string) string {
	parts := strings.Split(key, "_")
	if len(parts) == 1 {
		return key
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
