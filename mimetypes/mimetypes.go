// Package mimetypes maps file extensions to MIME types and back.
//
// The tables are fixed at build time. Nothing here reads the host's
// mime.types files, so the same content file always gets the same answer.
package mimetypes

import (
	"path"
	"sort"
	"strings"
)

// Unknown is the type to use when nothing better is known about some content.
const Unknown = "application/octet-stream"

// byExtension is keyed by the lower-cased extension, including the leading dot.
var byExtension = map[string]string{
	".aif":  "audio/x-aiff",
	".aiff": "audio/x-aiff",
	".avi":  "video/x-msvideo",
	".bin":  "application/octet-stream",
	".bmp":  "image/bmp",
	".css":  "text/css",
	".csv":  "text/csv",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".epub": "application/epub+zip",
	".flac": "audio/flac",
	".gif":  "image/gif",
	".gz":   "application/gzip",
	".htm":  "text/html",
	".html": "text/html",
	".jp2":  "image/jp2",
	".jpe":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".js":   "text/javascript",
	".json": "application/json",
	".m4a":  "audio/mp4",
	".m4v":  "video/x-m4v",
	".md":   "text/markdown",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".odp":  "application/vnd.oasis.opendocument.presentation",
	".ods":  "application/vnd.oasis.opendocument.spreadsheet",
	".odt":  "application/vnd.oasis.opendocument.text",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".ogv":  "video/ogg",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".rdf":  "application/rdf+xml",
	".rtf":  "application/rtf",
	".svg":  "image/svg+xml",
	".tar":  "application/x-tar",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".tsv":  "text/tab-separated-values",
	".ttl":  "text/turtle",
	".txt":  "text/plain",
	".vtt":  "text/vtt",
	".wav":  "audio/x-wav",
	".webm": "video/webm",
	".webp": "image/webp",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xml":  "text/xml",
	".zip":  "application/zip",
}

// preferred names the extension to use for types with more than one.
var preferred = map[string]string{
	"audio/ogg":    ".ogg",
	"audio/x-aiff": ".aif",
	"image/jpeg":   ".jpg",
	"image/tiff":   ".tif",
	"text/html":    ".html",
	"video/mpeg":   ".mpg",
}

// aliases are types that only ever appear in responses. They have no entry of
// their own in byExtension.
var aliases = map[string]string{
	"application/xml":   ".xml",
	"application/x-pdf": ".pdf",
	"image/jpg":         ".jpg",
	"image/pjpeg":       ".jpg",
}

// byType is derived from the two tables above and never modified afterwards.
var byType = func() map[string]string {
	m := make(map[string]string, len(byExtension))
	exts := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		exts = append(exts, ext)
	}
	// sort so the choice among several extensions is stable
	sort.Strings(exts)
	for _, ext := range exts {
		t := byExtension[ext]
		if _, ok := m[t]; !ok {
			m[t] = ext
		}
	}
	for t, ext := range preferred {
		m[t] = ext
	}
	return m
}()

// ByExtension returns the MIME type for the extension ext, which may be given
// with or without the leading dot. The second return value is false if the
// extension is not known.
func ByExtension(ext string) (string, bool) {
	if ext == "" {
		return "", false
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	t, ok := byExtension[strings.ToLower(ext)]
	return t, ok
}

// ByFilename guesses the MIME type of a file from its name.
func ByFilename(name string) (string, bool) {
	return ByExtension(path.Ext(strings.Replace(name, "\\", "/", -1)))
}

// ExtensionByType returns the extension, with a leading dot, to use for a file
// of the given MIME type. Parameters such as "; charset=utf-8" are ignored.
func ExtensionByType(mimetype string) (string, bool) {
	if i := strings.IndexByte(mimetype, ';'); i >= 0 {
		mimetype = mimetype[:i]
	}
	mimetype = strings.ToLower(strings.TrimSpace(mimetype))
	if mimetype == "" {
		return "", false
	}
	if ext, ok := byType[mimetype]; ok {
		return ext, true
	}
	ext, ok := aliases[mimetype]
	return ext, ok
}
