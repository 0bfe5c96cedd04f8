package capabilities

import (
	"encoding/xml"
	"fmt"
	"strings"

	"geospider/pkg/spider"
)

// wmsCapabilities mirrors the parts of a WMS 1.3.0 capabilities document
// this tool extracts. Tags match local names only; servers emit the wms and
// xlink namespaces.
type wmsCapabilities struct {
	XMLName xml.Name `xml:"WMS_Capabilities"`

	Service struct {
		Title    string   `xml:"Title"`
		Abstract string   `xml:"Abstract"`
		Keywords []string `xml:"KeywordList>Keyword"`
	} `xml:"Service"`

	Capability struct {
		GetMapFormats []string   `xml:"Request>GetMap>Format"`
		Layers        []wmsLayer `xml:"Layer"`
	} `xml:"Capability"`
}

type wmsLayer struct {
	Name     string   `xml:"Name"`
	Title    string   `xml:"Title"`
	Abstract string   `xml:"Abstract"`
	CRS      []string `xml:"CRS"`

	MinScaleDenominator string `xml:"MinScaleDenominator"`
	MaxScaleDenominator string `xml:"MaxScaleDenominator"`

	Styles []struct {
		Name      string `xml:"Name"`
		Title     string `xml:"Title"`
		LegendURL struct {
			OnlineResource struct {
				Href string `xml:"href,attr"`
			} `xml:"OnlineResource"`
		} `xml:"LegendURL"`
	} `xml:"Style"`

	MetadataURLs []struct {
		Type           string `xml:"type,attr"`
		OnlineResource struct {
			Href string `xml:"href,attr"`
		} `xml:"OnlineResource"`
	} `xml:"MetadataURL"`

	Layers []wmsLayer `xml:"Layer"`
}

type wmsAdapter struct{}

func (a *wmsAdapter) Parse(doc *RawDocument, record spider.MetadataRecord) (*spider.Service, error) {
	var caps wmsCapabilities
	if err := xml.Unmarshal(doc.Body, &caps); err != nil {
		return nil, fmt.Errorf("parsing WMS capabilities from %s: %v: %w", doc.URL, err, spider.ErrCapabilityParse)
	}

	var layers []spider.Layer
	for i := range caps.Capability.Layers {
		collectWMSLayers(&caps.Capability.Layers[i], nil, "", "", record.DatasetMetadataID, &layers)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("WMS capabilities from %s contain no named layers: %w", doc.URL, spider.ErrCapabilityParse)
	}

	return &spider.Service{
		Protocol:          spider.ProtocolWMS,
		Title:             caps.Service.Title,
		Abstract:          caps.Service.Abstract,
		Keywords:          caps.Service.Keywords,
		MetadataID:        record.Identifier,
		DatasetMetadataID: record.DatasetMetadataID,
		URL:               record.ServiceURL,
		ImageFormats:      strings.Join(caps.Capability.GetMapFormats, ","),
		Layers:            layers,
	}, nil
}

// collectWMSLayers walks the layer tree depth-first, collecting named
// layers. CRS lists and scale denominators are inherited from ancestor
// layers when a layer does not declare its own; group layers without a name
// only contribute inheritance.
func collectWMSLayers(layer *wmsLayer, inheritedCRS []string, minScale, maxScale, datasetID string, out *[]spider.Layer) {
	crs := inheritedCRS
	if len(layer.CRS) > 0 {
		crs = layer.CRS
	}
	if layer.MinScaleDenominator != "" {
		minScale = layer.MinScaleDenominator
	}
	if layer.MaxScaleDenominator != "" {
		maxScale = layer.MaxScaleDenominator
	}

	if layer.Name != "" {
		styles := make([]spider.Style, 0, len(layer.Styles))
		for _, s := range layer.Styles {
			styles = append(styles, spider.Style{
				Name:      s.Name,
				Title:     s.Title,
				LegendURL: s.LegendURL.OnlineResource.Href,
			})
		}

		layerDatasetID := datasetID
		for _, md := range layer.MetadataURLs {
			if !strings.Contains(md.Type, "TC211") {
				continue
			}
			if id := spider.DatasetIDFromURL(md.OnlineResource.Href); id != "" {
				layerDatasetID = id
				break
			}
		}

		*out = append(*out, spider.Layer{
			Name:              layer.Name,
			Title:             layer.Title,
			Abstract:          layer.Abstract,
			DatasetMetadataID: layerDatasetID,
			Styles:            styles,
			CRS:               strings.Join(crs, ","),
			MinScale:          minScale,
			MaxScale:          maxScale,
		})
	}

	for i := range layer.Layers {
		collectWMSLayers(&layer.Layers[i], crs, minScale, maxScale, datasetID, out)
	}
}
