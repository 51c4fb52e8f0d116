package foxml

import (
	"os"

	"github.com/pkg/errors"
)

// UpdateFile adds a version of the datastream dsid holding the file
// contentPath to the FOXML file input, and writes the result to output.
// Input is never modified, and it is an error for output to name the same
// file. Nothing is written to output unless every step succeeds.
func UpdateFile(input, output, dsid, contentPath string, opts Options) (*Version, error) {
	if err := checkDistinct(input, output); err != nil {
		return nil, err
	}
	doc, err := ReadFile(input)
	if err != nil {
		return nil, err
	}
	content, err := ReadContent(contentPath)
	if err != nil {
		return nil, err
	}
	v, err := doc.AddDatastreamVersion(dsid, content, opts)
	if err != nil {
		return nil, errors.Wrap(err, input)
	}
	if err := WriteFile(doc, output); err != nil {
		return nil, err
	}
	return v, nil
}

func checkDistinct(input, output string) error {
	if output == "" {
		return errors.Wrap(ErrInvalidOption, "no output file given")
	}
	if input == output {
		return errors.Wrapf(ErrInvalidOption, "output %s is the input file", output)
	}
	in, err := os.Stat(input)
	if err != nil {
		// reported when the input is read
		return nil
	}
	out, err := os.Stat(output)
	if err == nil && os.SameFile(in, out) {
		return errors.Wrapf(ErrInvalidOption, "output %s is the input file", output)
	}
	return nil
}
