package cachereport

import (
	"encoding/xml"

	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

// cache-report.xml uses the same fixed, cross-implementation wire format as
// buildinfo.xml (spec §6): a third-party XML library from the pack has no
// home here either, so this stays on encoding/xml for the same narrow reason
// buildrecord's codec does.

type reportXML struct {
	XMLName   xml.Name     `xml:"cache-report"`
	SessionID string       `xml:"sessionId,attr,omitempty"`
	Projects  []projectXML `xml:"projects>project"`
}

type projectXML struct {
	GroupID     string           `xml:"groupId,attr"`
	ArtifactID  string           `xml:"artifactId,attr"`
	Fingerprint string           `xml:"checksum,attr"`
	Source      string           `xml:"source,attr"`
	URL         string           `xml:"url,attr,omitempty"`
	Items       []reportItemXML  `xml:"items>item,omitempty"`
}

type reportItemXML struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
	Hash  string `xml:"hash,attr"`
}

// Marshal serializes a Report to cache-report.xml form.
func Marshal(r *Report) ([]byte, error) {
	doc := reportXML{SessionID: r.SessionID}
	for _, p := range r.Projects() {
		px := projectXML{
			GroupID:     p.GroupID,
			ArtifactID:  p.ArtifactID,
			Fingerprint: p.Fingerprint,
			Source:      string(p.Source),
			URL:         p.URL,
		}
		for _, item := range p.Items {
			px.Items = append(px.Items, reportItemXML{
				Type:  string(item.Kind),
				Value: item.Value,
				Hash:  item.Hash.String(),
			})
		}
		doc.Projects = append(doc.Projects, px)
	}
	return xml.MarshalIndent(doc, "", "  ")
}

// Unmarshal parses a cache-report.xml document into a Report.
func Unmarshal(data []byte) (*Report, error) {
	var doc reportXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	report := New()
	if doc.SessionID != "" {
		report.SessionID = doc.SessionID
	}
	for _, p := range doc.Projects {
		entry := ProjectReport{
			GroupID:     p.GroupID,
			ArtifactID:  p.ArtifactID,
			Fingerprint: p.Fingerprint,
			Source:      Source(p.Source),
			URL:         p.URL,
		}
		for _, item := range p.Items {
			entry.Items = append(entry.Items, projectinput.DigestItem{
				Kind:  projectinput.DigestKind(item.Type),
				Value: item.Value,
				Hash:  hashkit.Fingerprint(item.Hash),
			})
		}
		report.Add(entry)
	}
	return report, nil
}
