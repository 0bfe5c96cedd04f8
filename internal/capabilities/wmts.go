package capabilities

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"geospider/pkg/spider"
)

// wmtsCapabilities mirrors the parts of a WMTS 1.0 capabilities document
// this tool extracts: the layer list plus the tile matrix set definitions
// needed to derive per-layer scale ranges.
type wmtsCapabilities struct {
	XMLName xml.Name `xml:"Capabilities"`

	ServiceIdentification struct {
		Title    string   `xml:"Title"`
		Abstract string   `xml:"Abstract"`
		Keywords []string `xml:"Keywords>Keyword"`
	} `xml:"ServiceIdentification"`

	Contents struct {
		Layers []struct {
			Identifier string `xml:"Identifier"`
			Title      string `xml:"Title"`
			Abstract   string `xml:"Abstract"`

			Styles []struct {
				Identifier string `xml:"Identifier"`
				Title      string `xml:"Title"`
				LegendURL  struct {
					Href string `xml:"href,attr"`
				} `xml:"LegendURL"`
			} `xml:"Style"`

			Formats            []string `xml:"Format"`
			TileMatrixSetLinks []struct {
				TileMatrixSet string `xml:"TileMatrixSet"`
			} `xml:"TileMatrixSetLink"`
		} `xml:"Layer"`

		TileMatrixSets []struct {
			Identifier   string `xml:"Identifier"`
			TileMatrices []struct {
				ScaleDenominator string `xml:"ScaleDenominator"`
			} `xml:"TileMatrix"`
		} `xml:"TileMatrixSet"`
	} `xml:"Contents"`
}

type wmtsAdapter struct{}

func (a *wmtsAdapter) Parse(doc *RawDocument, record spider.MetadataRecord) (*spider.Service, error) {
	var caps wmtsCapabilities
	if err := xml.Unmarshal(doc.Body, &caps); err != nil {
		return nil, fmt.Errorf("parsing WMTS capabilities from %s: %v: %w", doc.URL, err, spider.ErrCapabilityParse)
	}
	if len(caps.Contents.Layers) == 0 {
		return nil, fmt.Errorf("WMTS capabilities from %s contain no layers: %w", doc.URL, spider.ErrCapabilityParse)
	}

	scalesBySet := make(map[string][]string, len(caps.Contents.TileMatrixSets))
	for _, tms := range caps.Contents.TileMatrixSets {
		for _, tm := range tms.TileMatrices {
			if tm.ScaleDenominator != "" {
				scalesBySet[tms.Identifier] = append(scalesBySet[tms.Identifier], tm.ScaleDenominator)
			}
		}
	}

	layers := make([]spider.Layer, 0, len(caps.Contents.Layers))
	for _, l := range caps.Contents.Layers {
		styles := make([]spider.Style, 0, len(l.Styles))
		for _, s := range l.Styles {
			styles = append(styles, spider.Style{
				Name:      s.Identifier,
				Title:     s.Title,
				LegendURL: s.LegendURL.Href,
			})
		}

		sets := make([]string, 0, len(l.TileMatrixSetLinks))
		var scales []string
		for _, link := range l.TileMatrixSetLinks {
			sets = append(sets, link.TileMatrixSet)
			scales = append(scales, scalesBySet[link.TileMatrixSet]...)
		}
		minScale, maxScale := scaleRange(scales)

		layers = append(layers, spider.Layer{
			Name:              l.Identifier,
			Title:             l.Title,
			Abstract:          l.Abstract,
			DatasetMetadataID: record.DatasetMetadataID,
			Styles:            styles,
			MinScale:          minScale,
			MaxScale:          maxScale,
			TileMatrixSets:    strings.Join(sets, ","),
			ImageFormats:      strings.Join(l.Formats, ","),
		})
	}

	return &spider.Service{
		Protocol:          spider.ProtocolWMTS,
		Title:             caps.ServiceIdentification.Title,
		Abstract:          caps.ServiceIdentification.Abstract,
		Keywords:          caps.ServiceIdentification.Keywords,
		MetadataID:        record.Identifier,
		DatasetMetadataID: record.DatasetMetadataID,
		URL:               record.ServiceURL,
		Layers:            layers,
	}, nil
}

// scaleRange returns the smallest and largest scale denominator, preserving
// the document's own string representation.
func scaleRange(scales []string) (minScale, maxScale string) {
	var minVal, maxVal float64
	for _, s := range scales {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			continue
		}
		if minScale == "" || v < minVal {
			minScale, minVal = s, v
		}
		if maxScale == "" || v > maxVal {
			maxScale, maxVal = s, v
		}
	}
	return minScale, maxScale
}
