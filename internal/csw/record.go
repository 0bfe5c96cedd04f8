// Package csw implements the catalog client: paginated CSW 2.0.2 GetRecords
// queries and ISO 19139 (gmd) metadata record parsing.
package csw

import (
	"encoding/xml"
	"fmt"
	"strings"

	"geospider/pkg/spider"
)

// characterString captures a gco:CharacterString or gmx:Anchor child, the
// two encodings GeoNetwork uses interchangeably for text values.
type characterString struct {
	CharacterString string `xml:"CharacterString"`
	Anchor          string `xml:"Anchor"`
}

// text returns whichever encoding is present.
func (c characterString) text() string {
	if c.CharacterString != "" {
		return strings.TrimSpace(c.CharacterString)
	}
	return strings.TrimSpace(c.Anchor)
}

// mdMetadata mirrors the parts of a gmd:MD_Metadata service record this tool
// extracts. Tags match local names only; GeoNetwork responses mix gmd, srv,
// gco and gmx namespaces and encoding/xml matches by local name when no
// namespace is given.
type mdMetadata struct {
	FileIdentifier characterString `xml:"fileIdentifier"`

	ServiceIdentification struct {
		Citation struct {
			Title characterString `xml:"CI_Citation>title"`
		} `xml:"citation"`
		Abstract            characterString `xml:"abstract"`
		DescriptiveKeywords []struct {
			Keywords []characterString `xml:"MD_Keywords>keyword"`
		} `xml:"descriptiveKeywords"`
		OperatesOn []struct {
			Href string `xml:"href,attr"`
		} `xml:"operatesOn"`
	} `xml:"identificationInfo>SV_ServiceIdentification"`

	DataIdentification struct {
		Citation struct {
			Title characterString `xml:"CI_Citation>title"`
		} `xml:"citation"`
		Abstract characterString `xml:"abstract"`
	} `xml:"identificationInfo>MD_DataIdentification"`

	OnLine []struct {
		Resource struct {
			Linkage struct {
				URL string `xml:"URL"`
			} `xml:"linkage"`
			Protocol    characterString `xml:"protocol"`
			Description characterString `xml:"description"`
		} `xml:"CI_OnlineResource"`
	} `xml:"distributionInfo>MD_Distribution>transferOptions>MD_DigitalTransferOptions>onLine"`
}

// serviceRecord converts a parsed MD_Metadata into the immutable
// MetadataRecord handed to the capability fetcher. Seq is assigned later by
// the client once the final record order is known.
func (m *mdMetadata) serviceRecord() spider.MetadataRecord {
	rec := spider.MetadataRecord{
		Identifier: m.FileIdentifier.text(),
		Title:      m.ServiceIdentification.Citation.Title.text(),
		Abstract:   m.ServiceIdentification.Abstract.text(),
	}

	for _, kw := range m.ServiceIdentification.DescriptiveKeywords {
		for _, k := range kw.Keywords {
			if v := k.text(); v != "" {
				rec.Keywords = append(rec.Keywords, v)
			}
		}
	}

	if len(m.ServiceIdentification.OperatesOn) > 0 {
		rec.OperatesOn = m.ServiceIdentification.OperatesOn[0].Href
		rec.DatasetMetadataID = spider.DatasetIDFromURL(rec.OperatesOn)
	}

	if len(m.OnLine) > 0 {
		res := m.OnLine[0].Resource
		rec.Protocol = spider.ProtocolType(res.Protocol.text())
		rec.ServiceURL = normalizeServiceURL(res.Linkage.URL, rec.Protocol)
	}

	return rec
}

// datasetRecord converts a parsed MD_Metadata dataset record.
func (m *mdMetadata) datasetRecord(mdID string) spider.DatasetRecord {
	return spider.DatasetRecord{
		MetadataID: mdID,
		Title:      m.DataIdentification.Citation.Title.text(),
		Abstract:   m.DataIdentification.Abstract.text(),
	}
}

// legacyTileServiceURL is a WMTS endpoint that historically appeared in
// records with redundant path elements appended.
const legacyTileServiceURL = "https://geodata.nationaalgeoregister.nl/tiles/service/wmts"

// normalizeServiceURL rewrites the online-resource linkage into a
// capabilities URL. For the XML-based OGC protocols the query is stripped
// and a canonical GetCapabilities query appended; RESTful WMTS URLs are
// rewritten to their KVP variant. OGC API landing pages pass through
// untouched.
func normalizeServiceURL(raw string, protocol spider.ProtocolType) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	switch protocol {
	case spider.ProtocolWMS, spider.ProtocolWFS, spider.ProtocolWCS, spider.ProtocolWMTS:
	default:
		return raw
	}

	base, _, _ := strings.Cut(raw, "?")
	if strings.Contains(base, legacyTileServiceURL) {
		base = legacyTileServiceURL
	}
	// Restful WMTS capabilities path; assume the KVP variant is supported.
	base = strings.TrimSuffix(base, "/WMTSCapabilities.xml")

	serviceType := string(protocol)
	if _, after, found := strings.Cut(serviceType, ":"); found {
		serviceType = after
	}
	return fmt.Sprintf("%s?request=GetCapabilities&service=%s", base, serviceType)
}

// cswException mirrors an ows:ExceptionReport returned instead of records.
type cswException struct {
	XMLName    xml.Name `xml:"ExceptionReport"`
	Exceptions []struct {
		Code string `xml:"exceptionCode,attr"`
		Text string `xml:"ExceptionText"`
	} `xml:"Exception"`
}

// getRecordsResponse mirrors a csw:GetRecordsResponse envelope.
type getRecordsResponse struct {
	XMLName       xml.Name `xml:"GetRecordsResponse"`
	SearchResults struct {
		NumberOfRecordsMatched  int          `xml:"numberOfRecordsMatched,attr"`
		NumberOfRecordsReturned int          `xml:"numberOfRecordsReturned,attr"`
		NextRecord              int          `xml:"nextRecord,attr"`
		Records                 []mdMetadata `xml:"MD_Metadata"`
	} `xml:"SearchResults"`
}

// getRecordByIDResponse mirrors a csw:GetRecordByIdResponse envelope.
type getRecordByIDResponse struct {
	XMLName xml.Name     `xml:"GetRecordByIdResponse"`
	Records []mdMetadata `xml:"MD_Metadata"`
}
