// Package capabilities fetches capability documents from service endpoints
// and normalizes them into the common service/layer model. Fetching (with
// bounded retry) and parsing are separated: adapters are pure functions over
// a RawDocument so they can be tested against canned documents.
package capabilities

import (
	"fmt"

	"geospider/pkg/spider"
)

// RawDocument is the raw material an adapter parses. For the XML protocols
// Body is the capabilities document. For the OGC API protocols Body is the
// collections or tiles document resolved from the landing page, Landing is
// the landing page itself and Styles the linked styles document when one is
// advertised.
type RawDocument struct {
	// URL is the capabilities URL the document was fetched from.
	URL string

	Body    []byte
	Landing []byte
	Styles  []byte
}

// Adapter parses one protocol family's capability document into a Service.
type Adapter interface {
	Parse(doc *RawDocument, record spider.MetadataRecord) (*spider.Service, error)
}

// AdapterFor returns the adapter for a protocol. Protocols recognized in
// catalog records but without an adapter (INSPIRE Atom) return an error.
func AdapterFor(protocol spider.ProtocolType) (Adapter, error) {
	switch protocol {
	case spider.ProtocolWMS:
		return &wmsAdapter{}, nil
	case spider.ProtocolWFS:
		return &wfsAdapter{}, nil
	case spider.ProtocolWCS:
		return &wcsAdapter{}, nil
	case spider.ProtocolWMTS:
		return &wmtsAdapter{}, nil
	case spider.ProtocolOAF:
		return &oaFeaturesAdapter{}, nil
	case spider.ProtocolOAT:
		return &oaTilesAdapter{}, nil
	default:
		return nil, fmt.Errorf("no capability adapter for protocol %q: %w", protocol, spider.ErrCapabilityParse)
	}
}
