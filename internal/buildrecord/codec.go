package buildrecord

import (
	"encoding/xml"

	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

// buildInfoDoc is the buildinfo.xml wire shape: an ordered, schema-versioned
// document mirroring BuildRecord field-for-field. encoding/xml is a narrow
// stdlib exception — no example repo in the pack carries a third-party XML
// library, and the container format itself is fixed by the remote URL
// contract, so there is nothing to swap it for.
type buildInfoDoc struct {
	XMLName          xml.Name          `xml:"buildinfo"`
	Version          string            `xml:"version,attr"`
	GroupID          string            `xml:"groupId,attr"`
	ArtifactID       string            `xml:"artifactId,attr"`
	ProjectVersion   string            `xml:"projectVersion,attr"`
	Final            bool              `xml:"final,attr,omitempty"`
	HighestPhase     string            `xml:"highestCompletedPhase,attr,omitempty"`
	ProjectsInput    projectsInputXML  `xml:"projectsInputInfo"`
	Artifacts        artifactsXML      `xml:"artifacts"`
	CompletedExecs   []completedExecXML `xml:"completedExecutions>execution"`
}

type projectsInputXML struct {
	Checksum      string    `xml:"checksum,attr"`
	SplitChecksum string    `xml:"splitChecksum,attr,omitempty"`
	Items         []itemXML `xml:"item"`
}

type itemXML struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
	Hash  string `xml:"hash,attr"`
}

type artifactsXML struct {
	Primary  *fileXML  `xml:"primary"`
	Attached []fileXML `xml:"attached"`
}

type fileXML struct {
	Name       string `xml:"name,attr"`
	Role       string `xml:"role,attr,omitempty"`
	Classifier string `xml:"classifier,attr,omitempty"`
	Extension  string `xml:"extension,attr,omitempty"`
	Hash       string `xml:"hash,attr,omitempty"`
	Directory  bool   `xml:"directory,attr,omitempty"`
}

type completedExecXML struct {
	StepID     string         `xml:"id,attr"`
	Properties []propertyXML  `xml:"property"`
}

type propertyXML struct {
	Name    string `xml:"name,attr"`
	Value   string `xml:"value,attr"`
	Tracked bool   `xml:"tracked,attr"`
}

func artifactEntryXML(a *ArtifactEntry) *fileXML {
	return &fileXML{
		Name:       a.FileName,
		Role:       string(a.Role),
		Classifier: a.Classifier,
		Extension:  a.Extension,
		Hash:       a.Hash.String(),
		Directory:  a.Directory,
	}
}

func artifactEntryFromXML(x fileXML) ArtifactEntry {
	return ArtifactEntry{
		Role:       ArtifactRole(x.Role),
		Classifier: x.Classifier,
		Extension:  x.Extension,
		FileName:   x.Name,
		Hash:       hashkit.Fingerprint(x.Hash),
		Directory:  x.Directory,
	}
}

// Marshal renders a BuildRecord as buildinfo.xml bytes.
func Marshal(r *BuildRecord) ([]byte, error) {
	doc := buildInfoDoc{
		Version:        CacheImplVersion,
		GroupID:        r.Coordinates.GroupID,
		ArtifactID:     r.Coordinates.ArtifactID,
		ProjectVersion: r.Coordinates.Version,
		Final:          r.Final,
		HighestPhase:   r.HighestCompletedPhase,
	}
	if r.Input != nil {
		doc.ProjectsInput.Checksum = r.Input.Checksum.String()
		doc.ProjectsInput.SplitChecksum = r.Input.SplitChecksum.String()
		for _, item := range r.Input.Items {
			doc.ProjectsInput.Items = append(doc.ProjectsInput.Items, itemXML{
				Type:  string(item.Kind),
				Value: item.Value,
				Hash:  item.Hash.String(),
			})
		}
	}
	if r.Primary != nil {
		doc.Artifacts.Primary = artifactEntryXML(r.Primary)
	}
	for _, a := range r.Attached {
		doc.Artifacts.Attached = append(doc.Artifacts.Attached, *artifactEntryXML(&a))
	}
	for _, exec := range r.CompletedExecutions {
		x := completedExecXML{StepID: exec.StepID}
		for _, p := range exec.Properties {
			x.Properties = append(x.Properties, propertyXML{Name: p.Name, Value: p.Value, Tracked: p.Tracked})
		}
		doc.CompletedExecs = append(doc.CompletedExecs, x)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// Unmarshal parses buildinfo.xml bytes into a BuildRecord. The record's
// Checksum field is not populated here: the caller sets it from the
// directory the record was read from, since it is the lookup key rather
// than document content.
func Unmarshal(data []byte) (*BuildRecord, error) {
	var doc buildInfoDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	r := &BuildRecord{
		CacheImplVersion: doc.Version,
		Coordinates: Coordinates{
			GroupID:    doc.GroupID,
			ArtifactID: doc.ArtifactID,
			Version:    doc.ProjectVersion,
		},
		Final:                 doc.Final,
		HighestCompletedPhase: doc.HighestPhase,
	}

	input := &projectinput.ProjectsInputInfo{
		Checksum:      hashkit.Fingerprint(doc.ProjectsInput.Checksum),
		SplitChecksum: hashkit.Fingerprint(doc.ProjectsInput.SplitChecksum),
	}
	for _, item := range doc.ProjectsInput.Items {
		input.Items = append(input.Items, projectinput.DigestItem{
			Kind:  projectinput.DigestKind(item.Type),
			Value: item.Value,
			Hash:  hashkit.Fingerprint(item.Hash),
		})
	}
	r.Input = input

	if doc.Artifacts.Primary != nil {
		entry := artifactEntryFromXML(*doc.Artifacts.Primary)
		r.Primary = &entry
	}
	for _, a := range doc.Artifacts.Attached {
		r.Attached = append(r.Attached, artifactEntryFromXML(a))
	}

	for _, exec := range doc.CompletedExecs {
		ce := CompletedExecution{StepID: exec.StepID}
		for _, p := range exec.Properties {
			ce.Properties = append(ce.Properties, TrackedProperty{Name: p.Name, Value: p.Value, Tracked: p.Tracked})
		}
		r.CompletedExecutions = append(r.CompletedExecutions, ce)
	}

	return r, nil
}
