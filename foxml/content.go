package foxml

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
)

// Content is the payload of a new datastream version.
type Content struct {
	// Name is only used to guess a MIME type. It is usually the path the
	// data was read from.
	Name string
	Data []byte
}

// ReadContent loads the file fname into memory.
func ReadContent(fname string) (Content, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Content{}, errors.Wrapf(ErrContentUnreadable, "%s: %s", fname, err)
	}
	defer f.Close()
	return NewContent(fname, f)
}

// NewContent reads r to the end and names the result.
func NewContent(name string, r io.Reader) (Content, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return Content{}, errors.Wrapf(ErrContentUnreadable, "%s: %s", name, err)
	}
	return Content{Name: name, Data: b}, nil
}
