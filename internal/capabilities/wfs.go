package capabilities

import (
	"encoding/xml"
	"fmt"

	"geospider/pkg/spider"
)

// wfsCapabilities mirrors the parts of a WFS 2.0 capabilities document this
// tool extracts (ows:ServiceIdentification plus the feature type list).
type wfsCapabilities struct {
	XMLName xml.Name `xml:"WFS_Capabilities"`

	ServiceIdentification struct {
		Title    string   `xml:"Title"`
		Abstract string   `xml:"Abstract"`
		Keywords []string `xml:"Keywords>Keyword"`
	} `xml:"ServiceIdentification"`

	OperationsMetadata struct {
		Operations []struct {
			Name       string `xml:"name,attr"`
			Parameters []struct {
				Name   string   `xml:"name,attr"`
				Values []string `xml:"AllowedValues>Value"`
			} `xml:"Parameter"`
		} `xml:"Operation"`
	} `xml:"OperationsMetadata"`

	FeatureTypes []struct {
		Name        string `xml:"Name"`
		Title       string `xml:"Title"`
		Abstract    string `xml:"Abstract"`
		MetadataURL struct {
			Href string `xml:"href,attr"`
		} `xml:"MetadataURL"`
	} `xml:"FeatureTypeList>FeatureType"`
}

type wfsAdapter struct{}

func (a *wfsAdapter) Parse(doc *RawDocument, record spider.MetadataRecord) (*spider.Service, error) {
	var caps wfsCapabilities
	if err := xml.Unmarshal(doc.Body, &caps); err != nil {
		return nil, fmt.Errorf("parsing WFS capabilities from %s: %v: %w", doc.URL, err, spider.ErrCapabilityParse)
	}
	if len(caps.FeatureTypes) == 0 {
		return nil, fmt.Errorf("WFS capabilities from %s contain no feature types: %w", doc.URL, spider.ErrCapabilityParse)
	}

	layers := make([]spider.Layer, 0, len(caps.FeatureTypes))
	for _, ft := range caps.FeatureTypes {
		datasetID := record.DatasetMetadataID
		if id := spider.DatasetIDFromURL(ft.MetadataURL.Href); id != "" {
			datasetID = id
		}
		layers = append(layers, spider.Layer{
			Name:              ft.Name,
			Title:             ft.Title,
			Abstract:          ft.Abstract,
			DatasetMetadataID: datasetID,
		})
	}

	return &spider.Service{
		Protocol:          spider.ProtocolWFS,
		Title:             caps.ServiceIdentification.Title,
		Abstract:          caps.ServiceIdentification.Abstract,
		Keywords:          caps.ServiceIdentification.Keywords,
		MetadataID:        record.Identifier,
		DatasetMetadataID: record.DatasetMetadataID,
		URL:               record.ServiceURL,
		OutputFormats:     getFeatureOutputFormats(&caps),
		Layers:            layers,
	}, nil
}

// getFeatureOutputFormats extracts the outputFormat allowed values of the
// GetFeature operation.
func getFeatureOutputFormats(caps *wfsCapabilities) []string {
	for _, op := range caps.OperationsMetadata.Operations {
		if op.Name != "GetFeature" {
			continue
		}
		for _, param := range op.Parameters {
			if param.Name == "outputFormat" {
				return param.Values
			}
		}
	}
	return nil
}
