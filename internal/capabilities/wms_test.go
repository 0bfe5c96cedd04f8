package capabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geospider/pkg/spider"
)

const sampleWMSCapabilities = `<?xml version="1.0" encoding="UTF-8"?>
<WMS_Capabilities version="1.3.0" xmlns="http://www.opengis.net/wms"
                  xmlns:xlink="http://www.w3.org/1999/xlink">
  <Service>
    <Name>WMS</Name>
    <Title>Actueel Hoogtebestand Nederland</Title>
    <Abstract>Hoogtegegevens van Nederland</Abstract>
    <KeywordList>
      <Keyword>hoogte</Keyword>
      <Keyword>ahn</Keyword>
    </KeywordList>
  </Service>
  <Capability>
    <Request>
      <GetMap>
        <Format>image/png</Format>
        <Format>image/jpeg</Format>
      </GetMap>
    </Request>
    <Layer>
      <Title>Root group</Title>
      <CRS>EPSG:28992</CRS>
      <CRS>EPSG:4326</CRS>
      <MaxScaleDenominator>50000</MaxScaleDenominator>
      <Layer>
        <Name>ahn3_05m_dsm</Name>
        <Title>AHN3 0,5m DSM</Title>
        <Abstract>Digitaal oppervlaktemodel</Abstract>
        <MinScaleDenominator>100</MinScaleDenominator>
        <Style>
          <Name>default</Name>
          <Title>Standaard</Title>
          <LegendURL>
            <OnlineResource xlink:href="https://example.com/legend/ahn3.png"/>
          </LegendURL>
        </Style>
        <MetadataURL type="TC211">
          <OnlineResource xlink:href="https://example.com/csw?uuid=dataset-ahn3"/>
        </MetadataURL>
      </Layer>
      <Layer>
        <Name>ahn3_5m_dtm</Name>
        <Title>AHN3 5m DTM</Title>
        <CRS>EPSG:3857</CRS>
      </Layer>
    </Layer>
  </Capability>
</WMS_Capabilities>`

func TestWMSAdapter_ParsesLayersWithInheritance(t *testing.T) {
	record := spider.MetadataRecord{
		Identifier:        "service-md-id",
		DatasetMetadataID: "record-dataset-id",
		ServiceURL:        "https://example.com/wms?request=GetCapabilities&service=WMS",
		Protocol:          spider.ProtocolWMS,
	}

	adapter, err := AdapterFor(spider.ProtocolWMS)
	require.NoError(t, err)

	svc, err := adapter.Parse(&RawDocument{URL: record.ServiceURL, Body: []byte(sampleWMSCapabilities)}, record)
	require.NoError(t, err)

	assert.Equal(t, spider.ProtocolWMS, svc.Protocol)
	assert.Equal(t, "Actueel Hoogtebestand Nederland", svc.Title)
	assert.Equal(t, []string{"hoogte", "ahn"}, svc.Keywords)
	assert.Equal(t, "service-md-id", svc.MetadataID)
	assert.Equal(t, "image/png,image/jpeg", svc.ImageFormats)
	require.Len(t, svc.Layers, 2)

	dsm := svc.Layers[0]
	assert.Equal(t, "ahn3_05m_dsm", dsm.Name)
	// CRS inherited from the unnamed group layer.
	assert.Equal(t, "EPSG:28992,EPSG:4326", dsm.CRS)
	assert.Equal(t, "100", dsm.MinScale)
	assert.Equal(t, "50000", dsm.MaxScale)
	require.Len(t, dsm.Styles, 1)
	assert.Equal(t, spider.Style{Name: "default", Title: "Standaard", LegendURL: "https://example.com/legend/ahn3.png"}, dsm.Styles[0])
	// TC211 metadata URL overrides the record's dataset id.
	assert.Equal(t, "dataset-ahn3", dsm.DatasetMetadataID)

	dtm := svc.Layers[1]
	// Own CRS declaration replaces the inherited list.
	assert.Equal(t, "EPSG:3857", dtm.CRS)
	assert.Equal(t, "record-dataset-id", dtm.DatasetMetadataID)
	// Present but empty, never nil: WMS always has a style concept.
	require.NotNil(t, dtm.Styles)
	assert.Empty(t, dtm.Styles)
}

func TestWMSAdapter_NoNamedLayersIsParseError(t *testing.T) {
	doc := &RawDocument{Body: []byte(`<WMS_Capabilities><Capability><Layer><Title>group only</Title></Layer></Capability></WMS_Capabilities>`)}

	adapter, err := AdapterFor(spider.ProtocolWMS)
	require.NoError(t, err)

	_, err = adapter.Parse(doc, spider.MetadataRecord{})
	assert.ErrorIs(t, err, spider.ErrCapabilityParse)
}

func TestWMSAdapter_MalformedDocumentIsParseError(t *testing.T) {
	adapter, err := AdapterFor(spider.ProtocolWMS)
	require.NoError(t, err)

	_, err = adapter.Parse(&RawDocument{Body: []byte(`not xml at all`)}, spider.MetadataRecord{})
	assert.ErrorIs(t, err, spider.ErrCapabilityParse)
}
