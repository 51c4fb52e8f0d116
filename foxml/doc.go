/*
Package foxml edits FOXML documents, the XML serialization Fedora Commons 3
uses for a digital object and its datastreams.

The main operation is adding a new version to a datastream. A document is
parsed into an in-memory tree, a datastreamVersion element is appended to the
datastream with the matching ID, and the whole tree is re-indented and
written back out:

	doc, err := foxml.ReadFile("object.xml")
	content, err := foxml.ReadContent("page1.jp2")
	v, err := doc.AddDatastreamVersion("OBJ", content, foxml.Options{})
	err = foxml.WriteFile(doc, "object-updated.xml")

The new version gets the next "{dsid}.{n}" id, a millisecond UTC timestamp,
and the content as wrapped Base64 inside a binaryContent element.

Namespace prefixes are kept exactly as they appear in the input. Parse
collects the prefix bindings of a document into Document.Namespaces; nothing
is registered globally, so documents may be processed concurrently as long as
each is used by a single goroutine.

Re-indentation only rewrites whitespace-only text. Character data with
content, such as inline XML text or the Base64 of earlier versions, is left
untouched.
*/
package foxml
