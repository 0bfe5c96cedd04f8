package capabilities

import (
	"encoding/json"
	"fmt"
	"strings"

	"geospider/pkg/spider"
)

// oapiCollections is the collections document of an OGC API Features
// service, resolved from the landing page's "data" link.
type oapiCollections struct {
	Collections []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"collections"`
}

type oaFeaturesAdapter struct{}

func (a *oaFeaturesAdapter) Parse(doc *RawDocument, record spider.MetadataRecord) (*spider.Service, error) {
	title, abstract := landingInfo(doc)

	var collections oapiCollections
	if err := json.Unmarshal(doc.Body, &collections); err != nil {
		return nil, fmt.Errorf("parsing collections document from %s: %v: %w", doc.URL, err, spider.ErrCapabilityParse)
	}
	if len(collections.Collections) == 0 {
		return nil, fmt.Errorf("collections document from %s contains no collections: %w", doc.URL, spider.ErrCapabilityParse)
	}

	layers := make([]spider.Layer, 0, len(collections.Collections))
	for _, c := range collections.Collections {
		layers = append(layers, spider.Layer{
			Name:              c.ID,
			Title:             c.Title,
			Abstract:          c.Description,
			DatasetMetadataID: record.DatasetMetadataID,
		})
	}

	return &spider.Service{
		Protocol:          spider.ProtocolOAF,
		Title:             title,
		Abstract:          abstract,
		MetadataID:        record.Identifier,
		DatasetMetadataID: record.DatasetMetadataID,
		URL:               record.ServiceURL,
		Layers:            layers,
	}, nil
}

// oapiTiles is the tiles metadata document of an OGC API Tiles service.
type oapiTiles struct {
	Tiles []struct {
		Title              string `json:"title"`
		TileMatrixSetLinks []struct {
			TileMatrixSet string `json:"tileMatrixSet"`
		} `json:"tileMatrixSetLinks"`
		Links []oapiLink `json:"links"`
	} `json:"tiles"`
}

// oapiStyles is the styles document linked from an OGC API landing page.
type oapiStyles struct {
	Styles []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"styles"`
}

type oaTilesAdapter struct{}

func (a *oaTilesAdapter) Parse(doc *RawDocument, record spider.MetadataRecord) (*spider.Service, error) {
	title, abstract := landingInfo(doc)

	var tiles oapiTiles
	if err := json.Unmarshal(doc.Body, &tiles); err != nil {
		return nil, fmt.Errorf("parsing tiles document from %s: %v: %w", doc.URL, err, spider.ErrCapabilityParse)
	}
	if len(tiles.Tiles) == 0 {
		return nil, fmt.Errorf("tiles document from %s contains no tilesets: %w", doc.URL, spider.ErrCapabilityParse)
	}

	styles := make([]spider.Style, 0)
	if len(doc.Styles) > 0 {
		var parsed oapiStyles
		if err := json.Unmarshal(doc.Styles, &parsed); err == nil {
			for _, s := range parsed.Styles {
				styles = append(styles, spider.Style{Name: s.ID, Title: s.Title})
			}
		}
	}

	serviceURL := record.ServiceURL
	layers := make([]spider.Layer, 0, len(tiles.Tiles))
	for _, t := range tiles.Tiles {
		sets := make([]string, 0, len(t.TileMatrixSetLinks))
		for _, link := range t.TileMatrixSetLinks {
			sets = append(sets, link.TileMatrixSet)
		}

		// The tile request template identifies the endpoint better than the
		// landing page does.
		for _, link := range t.Links {
			if link.Rel == "item" && link.Href != "" {
				serviceURL = link.Href
				break
			}
		}

		layers = append(layers, spider.Layer{
			Name:              t.Title,
			Title:             t.Title,
			DatasetMetadataID: record.DatasetMetadataID,
			Styles:            styles,
			TileMatrixSets:    strings.Join(sets, ","),
		})
	}

	return &spider.Service{
		Protocol:          spider.ProtocolOAT,
		Title:             title,
		Abstract:          abstract,
		MetadataID:        record.Identifier,
		DatasetMetadataID: record.DatasetMetadataID,
		URL:               serviceURL,
		Layers:            layers,
	}, nil
}

// landingInfo extracts the service title and description from the landing
// page retained by the fetcher.
func landingInfo(doc *RawDocument) (title, abstract string) {
	if len(doc.Landing) == 0 {
		return "", ""
	}
	var landing oapiLanding
	if err := json.Unmarshal(doc.Landing, &landing); err != nil {
		return "", ""
	}
	return landing.Title, landing.Description
}
