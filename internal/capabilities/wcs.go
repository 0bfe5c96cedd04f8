package capabilities

import (
	"encoding/xml"
	"fmt"

	"geospider/pkg/spider"
)

// wcsCapabilities mirrors the parts of a WCS 1.1 capabilities document this
// tool extracts. The root element is ows-style "Capabilities", shared with
// WMTS; the two are distinguished by their contents.
type wcsCapabilities struct {
	XMLName xml.Name `xml:"Capabilities"`

	ServiceIdentification struct {
		Title    string   `xml:"Title"`
		Abstract string   `xml:"Abstract"`
		Keywords []string `xml:"Keywords>Keyword"`
	} `xml:"ServiceIdentification"`

	Coverages []struct {
		Identifier string `xml:"Identifier"`
		Title      string `xml:"Title"`
		Abstract   string `xml:"Abstract"`
	} `xml:"Contents>CoverageSummary"`
}

type wcsAdapter struct{}

func (a *wcsAdapter) Parse(doc *RawDocument, record spider.MetadataRecord) (*spider.Service, error) {
	var caps wcsCapabilities
	if err := xml.Unmarshal(doc.Body, &caps); err != nil {
		return nil, fmt.Errorf("parsing WCS capabilities from %s: %v: %w", doc.URL, err, spider.ErrCapabilityParse)
	}
	if len(caps.Coverages) == 0 {
		return nil, fmt.Errorf("WCS capabilities from %s contain no coverages: %w", doc.URL, spider.ErrCapabilityParse)
	}

	layers := make([]spider.Layer, 0, len(caps.Coverages))
	for _, cov := range caps.Coverages {
		layers = append(layers, spider.Layer{
			Name:              cov.Identifier,
			Title:             cov.Title,
			Abstract:          cov.Abstract,
			DatasetMetadataID: record.DatasetMetadataID,
		})
	}

	return &spider.Service{
		Protocol:          spider.ProtocolWCS,
		Title:             caps.ServiceIdentification.Title,
		Abstract:          caps.ServiceIdentification.Abstract,
		Keywords:          caps.ServiceIdentification.Keywords,
		MetadataID:        record.Identifier,
		DatasetMetadataID: record.DatasetMetadataID,
		URL:               record.ServiceURL,
		Layers:            layers,
	}, nil
}
