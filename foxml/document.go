package foxml

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

// FOXML namespace URIs
const (
	Namespace      = "info:fedora/fedora-system:def/foxml#"
	AuditNamespace = "info:fedora/fedora-system:def/audit#"
)

// Exported errors. Use errors.Cause() to compare a returned error with these.
var (
	ErrDocumentUnreadable = errors.New("Cannot read FOXML document")
	ErrDocumentParse      = errors.New("Malformed FOXML document")
	ErrContentUnreadable  = errors.New("Cannot read datastream content")
	ErrDatastreamNotFound = errors.New("Datastream not found")
	ErrOutputWrite        = errors.New("Cannot write FOXML document")
	ErrInvalidOption      = errors.New("Invalid option")
)

// A Document is a parsed FOXML file. It is not safe for concurrent use.
type Document struct {
	tree *etree.Document

	// Namespaces maps each prefix declared in the source document to its
	// URI. The default namespace, if any, has the prefix "".
	Namespaces map[string]string
}

const xmlDeclaration = `version="1.0" encoding="UTF-8"`

// Parse reads a FOXML document from b.
func Parse(b []byte) (*Document, error) {
	tree := etree.NewDocument()
	tree.WriteSettings.CanonicalText = true
	tree.WriteSettings.CanonicalAttrVal = true
	tree.ReadSettings.PreserveDuplicateAttrs = true
	if err := tree.ReadFromBytes(b); err != nil {
		return nil, errors.Wrap(ErrDocumentParse, err.Error())
	}
	if err := checkWellFormed(tree); err != nil {
		return nil, err
	}
	d := &Document{
		tree:       tree,
		Namespaces: collectNamespaces(tree.Root()),
	}
	d.resetProlog()
	return d, nil
}

// ReadFile parses the FOXML document stored in the file fname.
func ReadFile(fname string) (*Document, error) {
	b, err := ioutil.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrapf(ErrDocumentUnreadable, "%s: %s", fname, err)
	}
	d, err := Parse(b)
	if err != nil {
		return nil, errors.Wrap(err, fname)
	}
	return d, nil
}

// Root returns the document element, usually foxml:digitalObject.
func (d *Document) Root() *etree.Element {
	return d.tree.Root()
}

// PID returns the PID attribute of the document element.
func (d *Document) PID() string {
	return d.Root().SelectAttrValue("PID", "")
}

// Serialize returns the document as UTF-8 encoded XML, beginning with an
// XML declaration. It does not modify the document, so serializing an
// unchanged document twice gives identical output.
func (d *Document) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.tree.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile serializes the document into the file fname. The document is
// first written to a temporary file in the same directory which is then
// renamed over fname, so fname is either fully written or left as it was.
func WriteFile(d *Document, fname string) error {
	b, err := d.Serialize()
	if err != nil {
		return errors.Wrapf(ErrOutputWrite, "%s: %s", fname, err)
	}
	dir, base := filepath.Split(fname)
	if dir == "" {
		dir = "."
	}
	f, err := ioutil.TempFile(dir, "."+base+"-")
	if err != nil {
		return errors.Wrapf(ErrOutputWrite, "%s: %s", fname, err)
	}
	tempname := f.Name()
	_, err = f.Write(b)
	if err == nil {
		err = f.Sync()
	}
	if err == nil {
		err = f.Chmod(0644)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tempname, fname)
	}
	if err != nil {
		os.Remove(tempname)
		return errors.Wrapf(ErrOutputWrite, "%s: %s", fname, err)
	}
	return nil
}

// resetProlog puts a single XML declaration at the top of the document and
// one newline between each top level token. Any declaration in the source
// is replaced since we always write UTF-8.
func (d *Document) resetProlog() {
	var keep []etree.Token
	for _, t := range d.tree.Child {
		switch v := t.(type) {
		case *etree.ProcInst:
			if v.Target == "xml" {
				continue
			}
		case *etree.CharData:
			if v.IsWhitespace() {
				continue
			}
		}
		keep = append(keep, t)
	}
	for len(d.tree.Child) > 0 {
		d.tree.RemoveChildAt(len(d.tree.Child) - 1)
	}
	d.tree.CreateProcInst("xml", xmlDeclaration)
	for _, t := range keep {
		d.tree.CreateText("\n")
		d.tree.AddChild(t)
	}
	d.tree.CreateText("\n")
}

// checkWellFormed rejects what the etree reader lets through: anything but
// a single document element, text outside of it, repeated attributes, and
// prefixes used without a binding in scope.
func checkWellFormed(tree *etree.Document) error {
	roots := 0
	for _, t := range tree.Child {
		switch v := t.(type) {
		case *etree.Element:
			roots++
		case *etree.CharData:
			if !v.IsWhitespace() {
				return errors.Wrapf(ErrDocumentParse, "text %.20q outside the document element", v.Data)
			}
		}
	}
	switch {
	case roots == 0:
		return errors.Wrap(ErrDocumentParse, "no root element")
	case roots > 1:
		return errors.Wrapf(ErrDocumentParse, "%d document elements", roots)
	}
	return checkElement(tree.Root(), map[string]bool{"xml": true})
}

// checkElement walks e and its descendants. bound holds the prefixes
// declared on the ancestors of e.
func checkElement(e *etree.Element, bound map[string]bool) error {
	seen := make(map[string]bool, len(e.Attr))
	scope, copied := bound, false
	for _, a := range e.Attr {
		name := qualify(a.Space, a.Key)
		if seen[name] {
			return errors.Wrapf(ErrDocumentParse, "attribute %s repeated on <%s>", name, e.FullTag())
		}
		seen[name] = true
		if a.Space == "xmlns" {
			if !copied {
				scope = make(map[string]bool, len(bound)+1)
				for k := range bound {
					scope[k] = true
				}
				copied = true
			}
			scope[a.Key] = true
		}
	}
	if e.Space != "" && !scope[e.Space] {
		return errors.Wrapf(ErrDocumentParse, "prefix %s of <%s> is not bound", e.Space, e.FullTag())
	}
	for _, a := range e.Attr {
		if a.Space != "" && a.Space != "xmlns" && !scope[a.Space] {
			return errors.Wrapf(ErrDocumentParse, "prefix %s of attribute %s is not bound", a.Space, a.FullKey())
		}
	}
	for _, c := range e.ChildElements() {
		if err := checkElement(c, scope); err != nil {
			return err
		}
	}
	return nil
}

// collectNamespaces returns every prefix binding declared on root or its
// descendants. The first declaration of a prefix wins.
func collectNamespaces(root *etree.Element) map[string]string {
	result := make(map[string]string)
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		for _, a := range e.Attr {
			switch {
			case a.Space == "xmlns":
				if _, ok := result[a.Key]; !ok {
					result[a.Key] = a.Value
				}
			case a.Space == "" && a.Key == "xmlns":
				if _, ok := result[""]; !ok {
					result[""] = a.Value
				}
			}
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(root)
	return result
}

// prefixFor returns a prefix bound to uri. The prefixes declared on the
// document element are preferred since they are in scope everywhere.
func (d *Document) prefixFor(uri string) (string, bool) {
	root := d.Root()
	if root.NamespaceURI() == uri {
		return root.Space, true
	}
	for _, a := range root.Attr {
		if a.Space == "xmlns" && a.Value == uri {
			return a.Key, true
		}
	}
	return "", false
}

// qualify joins a prefix and a local name into a tag.
func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
