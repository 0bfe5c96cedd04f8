package serializer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"geospider/pkg/spider"
)

func sampleLayers() []spider.FlatLayer {
	return []spider.FlatLayer{
		{
			Layer: spider.Layer{
				Name:   "actueel_orthohr",
				Title:  "Luchtfoto Actueel HR",
				Styles: []spider.Style{},
			},
			ServiceMetadataID: "md-1",
			ServiceTitle:      "Luchtfoto WMTS",
			ServiceURL:        "https://example.com/wmts",
			ServiceProtocol:   spider.ProtocolWMTS,
		},
		{
			Layer: spider.Layer{
				Name:  "bgt:pand",
				Title: "Pand",
			},
			ServiceMetadataID: "md-2",
			ServiceTitle:      "BGT WFS",
			ServiceURL:        "https://example.com/wfs",
			ServiceProtocol:   spider.ProtocolWFS,
		},
	}
}

func TestMarshal_RoundTripsLayerIdentities(t *testing.T) {
	data, err := Marshal(map[string]any{"layers": sampleLayers()}, Options{Format: FormatJSON})
	require.NoError(t, err)

	var decoded struct {
		Layers []struct {
			Name       string `json:"name"`
			ServiceURL string `json:"service_url"`
			Protocol   string `json:"service_protocol"`
		} `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Layers, 2)
	assert.Equal(t, "actueel_orthohr", decoded.Layers[0].Name)
	assert.Equal(t, "https://example.com/wmts", decoded.Layers[0].ServiceURL)
	assert.Equal(t, "OGC:WMTS", decoded.Layers[0].Protocol)
}

func TestMarshal_AbsentDiffersFromEmpty(t *testing.T) {
	data, err := Marshal(map[string]any{"layers": sampleLayers()}, Options{Format: FormatJSON})
	require.NoError(t, err)

	var decoded struct {
		Layers []map[string]any `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	// The WMTS layer has an empty-but-present styles list.
	styles, present := decoded.Layers[0]["styles"]
	require.True(t, present)
	assert.Empty(t, styles)

	// The WFS layer has no style concept: the key is gone, not null.
	_, present = decoded.Layers[1]["styles"]
	assert.False(t, present)
}

func TestMarshal_CamelCaseRenamesKeysOnly(t *testing.T) {
	input := map[string]any{
		"service_url": "https://example.com/wms?foo_bar=baz_qux",
		"nested": map[string]any{
			"dataset_metadata_id": "ds_with_underscores",
		},
	}

	data, err := Marshal(input, Options{Format: FormatJSON, Keys: spider.KeysCamelCase})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Keys renamed.
	assert.Contains(t, decoded, "serviceUrl")
	nested := decoded["nested"].(map[string]any)
	assert.Contains(t, nested, "datasetMetadataId")
	// Values untouched.
	assert.Equal(t, "https://example.com/wms?foo_bar=baz_qux", decoded["serviceUrl"])
	assert.Equal(t, "ds_with_underscores", nested["datasetMetadataId"])
}

func TestMarshal_TimestampOnObjectRoot(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	data, err := Marshal(map[string]any{"layers": []string{}}, Options{
		Format:    FormatJSON,
		Timestamp: true,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2025-03-14T09:26:53Z", decoded["updated"])
}

func TestMarshal_PrettyUsesFourSpaceIndent(t *testing.T) {
	data, err := Marshal(map[string]any{"key": "value"}, Options{Format: FormatJSON, Pretty: true})
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "\n    \"key\""))
}

func TestMarshal_YAML(t *testing.T) {
	data, err := Marshal(map[string]any{"layers": sampleLayers()}, Options{Format: FormatYAML})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "layers")
}

func TestSnakeToCamel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "service_url", want: "serviceUrl"},
		{in: "dataset_metadata_id", want: "datasetMetadataId"},
		{in: "title", want: "title"},
		{in: "img_formats", want: "imgFormats"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, snakeToCamel(tt.in))
	}
}

func TestFormatContentType(t *testing.T) {
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "application/yaml", FormatYAML.ContentType())
}
