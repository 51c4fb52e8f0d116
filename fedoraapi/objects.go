package fedoraapi

import (
	"io"
	"net/url"
	"strings"
)

func exportPath(pid string) string {
	return "/fedora/objects/" + url.PathEscape(pid) + "/export?context=archive"
}

func contentPath(pid, dsid string) string {
	return "/fedora/objects/" + url.PathEscape(pid) + "/datastreams/" + url.PathEscape(dsid) + "/content"
}

// OpenExport starts an archive export of pid. See ExportObject.
func (c *Connection) OpenExport(pid string) (*Body, error) {
	return c.open(exportPath(pid))
}

// OpenDatastreamContent starts a download of the latest version of the
// datastream dsid of pid.
func (c *Connection) OpenDatastreamContent(pid, dsid string) (*Body, error) {
	return c.open(contentPath(pid, dsid))
}

// ExportObject copies the archive FOXML export of pid to w. The archive
// context inlines the content of managed datastreams as Base64. It returns
// the Content-Type of the response and the number of bytes written.
func (c *Connection) ExportObject(w io.Writer, pid string) (string, int64, error) {
	return c.get(w, exportPath(pid))
}

// DatastreamContent copies the content of the latest version of the
// datastream dsid of pid to w.
func (c *Connection) DatastreamContent(w io.Writer, pid, dsid string) (string, int64, error) {
	return c.get(w, contentPath(pid, dsid))
}

// TrimPID removes the "info:fedora/" prefix the resource index puts in
// front of object URIs.
func TrimPID(s string) string {
	return strings.TrimPrefix(s, "info:fedora/")
}
