package capabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geospider/pkg/spider"
)

const sampleLanding = `{
  "title": "BGT OGC API",
  "description": "Basisregistratie Grootschalige Topografie als OGC API",
  "links": [
    {"rel": "self", "href": "https://api.example.com/bgt/ogc/v1"},
    {"rel": "data", "href": "https://api.example.com/bgt/ogc/v1/collections"},
    {"rel": "http://www.opengis.net/def/rel/ogc/1.0/tilesets-vector", "href": "https://api.example.com/bgt/ogc/v1/tiles"},
    {"rel": "styles", "href": "https://api.example.com/bgt/ogc/v1/styles"}
  ]
}`

const sampleCollections = `{
  "collections": [
    {"id": "pand", "title": "Pand", "description": "Panden uit de BGT"},
    {"id": "wegdeel", "title": "Wegdeel"}
  ]
}`

const sampleTiles = `{
  "tiles": [
    {
      "title": "bgt",
      "tileMatrixSetLinks": [
        {"tileMatrixSet": "NetherlandsRDNewQuad"},
        {"tileMatrixSet": "WebMercatorQuad"}
      ],
      "links": [
        {"rel": "item", "type": "application/vnd.mapbox-vector-tile", "href": "https://api.example.com/bgt/tiles/{tileMatrixSet}/{tileMatrix}/{tileRow}/{tileCol}"}
      ]
    }
  ]
}`

const sampleStyles = `{
  "styles": [
    {"id": "bgt_standaard", "title": "Standaardvisualisatie"},
    {"id": "bgt_achtergrond", "title": "Achtergrondvisualisatie"}
  ]
}`

func TestOAFeaturesAdapter_ParsesCollections(t *testing.T) {
	record := spider.MetadataRecord{
		Identifier:        "oaf-md-id",
		DatasetMetadataID: "dataset-bgt",
		ServiceURL:        "https://api.example.com/bgt/ogc/v1",
		Protocol:          spider.ProtocolOAF,
	}
	doc := &RawDocument{
		URL:     record.ServiceURL,
		Body:    []byte(sampleCollections),
		Landing: []byte(sampleLanding),
	}

	adapter, err := AdapterFor(spider.ProtocolOAF)
	require.NoError(t, err)

	svc, err := adapter.Parse(doc, record)
	require.NoError(t, err)

	assert.Equal(t, "BGT OGC API", svc.Title)
	assert.Equal(t, "Basisregistratie Grootschalige Topografie als OGC API", svc.Abstract)
	require.Len(t, svc.Layers, 2)
	assert.Equal(t, "pand", svc.Layers[0].Name)
	assert.Equal(t, "Panden uit de BGT", svc.Layers[0].Abstract)
	assert.Equal(t, "dataset-bgt", svc.Layers[0].DatasetMetadataID)
	assert.Nil(t, svc.Layers[0].Styles)
}

func TestOAFeaturesAdapter_NoCollectionsIsParseError(t *testing.T) {
	adapter, err := AdapterFor(spider.ProtocolOAF)
	require.NoError(t, err)

	_, err = adapter.Parse(&RawDocument{Body: []byte(`{"collections": []}`)}, spider.MetadataRecord{})
	assert.ErrorIs(t, err, spider.ErrCapabilityParse)
}

func TestOATilesAdapter_ParsesTilesetsAndStyles(t *testing.T) {
	record := spider.MetadataRecord{
		Identifier: "oat-md-id",
		ServiceURL: "https://api.example.com/bgt/ogc/v1",
		Protocol:   spider.ProtocolOAT,
	}
	doc := &RawDocument{
		URL:     record.ServiceURL,
		Body:    []byte(sampleTiles),
		Landing: []byte(sampleLanding),
		Styles:  []byte(sampleStyles),
	}

	adapter, err := AdapterFor(spider.ProtocolOAT)
	require.NoError(t, err)

	svc, err := adapter.Parse(doc, record)
	require.NoError(t, err)

	// The tile request template wins over the landing page URL.
	assert.Equal(t, "https://api.example.com/bgt/tiles/{tileMatrixSet}/{tileMatrix}/{tileRow}/{tileCol}", svc.URL)
	require.Len(t, svc.Layers, 1)

	layer := svc.Layers[0]
	assert.Equal(t, "bgt", layer.Name)
	assert.Equal(t, "NetherlandsRDNewQuad,WebMercatorQuad", layer.TileMatrixSets)
	require.Len(t, layer.Styles, 2)
	assert.Equal(t, "bgt_standaard", layer.Styles[0].Name)
}

func TestOATilesAdapter_MissingStylesDocumentYieldsEmptyStyles(t *testing.T) {
	adapter, err := AdapterFor(spider.ProtocolOAT)
	require.NoError(t, err)

	svc, err := adapter.Parse(&RawDocument{Body: []byte(sampleTiles)}, spider.MetadataRecord{})
	require.NoError(t, err)
	require.Len(t, svc.Layers, 1)
	require.NotNil(t, svc.Layers[0].Styles)
	assert.Empty(t, svc.Layers[0].Styles)
}

func TestAdapterFor_UnknownProtocol(t *testing.T) {
	_, err := AdapterFor(spider.ProtocolAtom)
	assert.ErrorIs(t, err, spider.ErrCapabilityParse)
}
