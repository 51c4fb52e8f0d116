package foxml

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"

	"github.com/ndlib/foxtools/mimetypes"
)

// A ControlGroup is the storage mode of a datastream.
type ControlGroup string

// The control groups Fedora understands.
const (
	Inline   ControlGroup = "X" // XML content kept inside the FOXML
	Managed  ControlGroup = "M" // content stored by the repository
	External ControlGroup = "E" // content referenced by URL
	Redirect ControlGroup = "R" // client is redirected to a URL
)

// ParseControlGroup validates s, which is either a control group letter
// or an empty string meaning Managed.
func ParseControlGroup(s string) (ControlGroup, error) {
	switch ControlGroup(strings.ToUpper(s)) {
	case "", Managed:
		return Managed, nil
	case Inline:
		return Inline, nil
	case External:
		return External, nil
	case Redirect:
		return Redirect, nil
	}
	return "", errors.Wrapf(ErrInvalidOption, "unknown control group %q", s)
}

// A MissingPolicy says what to do when the datastream being added to does
// not exist in the document.
type MissingPolicy int

const (
	// MissingFail returns ErrDatastreamNotFound.
	MissingFail MissingPolicy = iota
	// MissingCreate adds a new, active, versionable datastream to the end
	// of the document.
	MissingCreate
)

// Line widths for the Base64 text.
const (
	DefaultLineWidth = 80
	MIMELineWidth    = 76
)

// CreatedLayout is the timestamp format of the CREATED attribute.
const CreatedLayout = "2006-01-02T15:04:05.000Z"

// Options adjust how AddDatastreamVersion builds the new version. The zero
// value is usable.
type Options struct {
	// Label for the new version. If empty the label of the latest existing
	// version is used, or "{dsid} datastream" if there are none.
	Label string

	// MimeType of the content. If empty it is guessed from the content's
	// name, falling back to application/octet-stream.
	MimeType string

	// ControlGroup is only used when a datastream is created.
	ControlGroup ControlGroup

	Missing MissingPolicy

	// LineWidth is the number of Base64 characters per line.
	LineWidth int

	// Clock provides the CREATED timestamp. Nil means the system clock.
	Clock clock.Clock
}

// A Version describes a datastream version added to a document.
type Version struct {
	ID            string
	DSID          string
	Label         string
	MimeType      string
	Size          int64
	Created       time.Time
	NewDatastream bool // the datastream itself was created
}

// Datastream returns the datastream element with the given ID, or nil. Only
// the direct children of the document element are searched.
func (d *Document) Datastream(dsid string) *etree.Element {
	for _, e := range d.Root().ChildElements() {
		if isFoxml(e, "datastream") && e.SelectAttrValue("ID", "") == dsid {
			return e
		}
	}
	return nil
}

// DatastreamIDs lists the IDs of the document's datastreams in order.
func (d *Document) DatastreamIDs() []string {
	var result []string
	for _, e := range d.Root().ChildElements() {
		if isFoxml(e, "datastream") {
			result = append(result, e.SelectAttrValue("ID", ""))
		}
	}
	return result
}

// Versions returns the datastreamVersion children of the datastream element
// ds, oldest first.
func Versions(ds *etree.Element) []*etree.Element {
	var result []*etree.Element
	for _, e := range ds.ChildElements() {
		if isFoxml(e, "datastreamVersion") {
			result = append(result, e)
		}
	}
	return result
}

// AddDatastreamVersion appends a new version holding content to the datastream
// dsid and re-indents the document. The document is only changed if no error
// is returned.
func (d *Document) AddDatastreamVersion(dsid string, content Content, opts Options) (*Version, error) {
	if dsid == "" {
		return nil, errors.Wrap(ErrInvalidOption, "empty datastream id")
	}
	width := opts.LineWidth
	if width == 0 {
		width = DefaultLineWidth
	}
	if width < 4 || width%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidOption, "line width %d is not a positive multiple of 4", width)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	unit := detectIndent(d.Root())

	result := &Version{DSID: dsid, Size: int64(len(content.Data))}
	ds := d.Datastream(dsid)
	if ds == nil {
		if opts.Missing != MissingCreate {
			return nil, errors.Wrapf(ErrDatastreamNotFound, "%s in %s", dsid, d.PID())
		}
		cg, err := ParseControlGroup(string(opts.ControlGroup))
		if err != nil {
			return nil, err
		}
		ds = d.createDatastream(dsid, cg)
		result.NewDatastream = true
	}

	versions := Versions(ds)
	result.ID = dsid + "." + strconv.Itoa(len(versions))
	result.Label = opts.Label
	if result.Label == "" && len(versions) > 0 {
		result.Label = versions[len(versions)-1].SelectAttrValue("LABEL", "")
	}
	if result.Label == "" {
		result.Label = dsid + " datastream"
	}
	result.MimeType = opts.MimeType
	if result.MimeType == "" {
		result.MimeType, _ = mimetypes.ByFilename(content.Name)
	}
	if result.MimeType == "" {
		result.MimeType = mimetypes.Unknown
	}
	result.Created = clk.Now().UTC()

	v := ds.CreateElement(qualify(ds.Space, "datastreamVersion"))
	v.CreateAttr("ID", result.ID)
	v.CreateAttr("LABEL", result.Label)
	v.CreateAttr("CREATED", result.Created.Format(CreatedLayout))
	v.CreateAttr("MIMETYPE", result.MimeType)
	v.CreateAttr("SIZE", strconv.FormatInt(result.Size, 10))

	bc := v.CreateElement(qualify(ds.Space, "binaryContent"))
	level := depth(bc)
	bc.SetText(wrapBase64(content.Data, width,
		strings.Repeat(unit, level+1),
		strings.Repeat(unit, level)))

	d.Reindent(unit)
	return result, nil
}

// createDatastream appends an empty datastream element to the document.
// If the document element has no prefix for the FOXML namespace, one that
// is free there is declared on it.
func (d *Document) createDatastream(dsid string, cg ControlGroup) *etree.Element {
	root := d.Root()
	prefix, ok := d.prefixFor(Namespace)
	if !ok {
		prefix = "foxml"
		for i := 1; root.SelectAttr("xmlns:"+prefix) != nil; i++ {
			prefix = "foxml" + strconv.Itoa(i)
		}
		root.CreateAttr("xmlns:"+prefix, Namespace)
		d.Namespaces[prefix] = Namespace
	}
	ds := root.CreateElement(qualify(prefix, "datastream"))
	ds.CreateAttr("ID", dsid)
	ds.CreateAttr("STATE", "A")
	ds.CreateAttr("CONTROL_GROUP", string(cg))
	ds.CreateAttr("VERSIONABLE", "true")
	return ds
}

// wrapBase64 encodes b and breaks the result into lines of width
// characters. Each line starts with a newline and indent, and the text
// ends with a newline and closing so the end tag lines up with its start tag.
func wrapBase64(b []byte, width int, indent, closing string) string {
	encoded := base64.StdEncoding.EncodeToString(b)
	var sb strings.Builder
	for len(encoded) > 0 {
		n := width
		if n > len(encoded) {
			n = len(encoded)
		}
		sb.WriteString("\n")
		sb.WriteString(indent)
		sb.WriteString(encoded[:n])
		encoded = encoded[n:]
	}
	sb.WriteString("\n")
	sb.WriteString(closing)
	return sb.String()
}

func isFoxml(e *etree.Element, local string) bool {
	return e.Tag == local && e.NamespaceURI() == Namespace
}
