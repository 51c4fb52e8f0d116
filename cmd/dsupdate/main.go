// dsupdate adds a new version to a datastream in a FOXML file.
//
// The content file is Base64 encoded into the new version, which gets the
// next version id and the current time. The updated document is written to
// the output path, which must differ from the input. Nothing is written if
// there is any error.
//
// Example:
//
//	$ dsupdate -xml object.xml -dsid OBJ -content page1.jp2 -output object-new.xml
//	OBJ.2
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/getsentry/raven-go"

	"github.com/ndlib/foxtools/foxml"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dsupdate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		input    = fs.String("xml", "", "path to the FOXML file to modify")
		dsid     = fs.String("dsid", "", "ID of the datastream to add a version to")
		content  = fs.String("content", "", "path to the content of the new version")
		label    = fs.String("label", "", "label of the new version (default: label of the latest version)")
		mimetype = fs.String("mimetype", "", "MIME type of the content (default: guessed from the file name)")
		create   = fs.Bool("create", false, "create the datastream if it does not exist")
		cgroup   = fs.String("control-group", "M", "control group of a created datastream: X, M, E, or R")
		wrap     = fs.Int("wrap", foxml.DefaultLineWidth, "Base64 characters per line, a multiple of 4")
		output   = fs.String("output", "", "path to the output FOXML file")
		verbose  = fs.Bool("v", false, "describe the new version")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" || *dsid == "" || *content == "" || *output == "" {
		fmt.Fprintln(stderr, "dsupdate: -xml, -dsid, -content, and -output are required")
		fs.Usage()
		return 2
	}

	opts := foxml.Options{
		Label:     *label,
		MimeType:  *mimetype,
		LineWidth: *wrap,
	}
	if *create {
		cg, err := foxml.ParseControlGroup(*cgroup)
		if err != nil {
			fmt.Fprintln(stderr, "dsupdate:", err)
			return 2
		}
		opts.Missing = foxml.MissingCreate
		opts.ControlGroup = cg
	}

	v, err := foxml.UpdateFile(*input, *output, *dsid, *content, opts)
	if err != nil {
		fmt.Fprintf(stderr, "dsupdate: %s: %s\n", *dsid, err)
		raven.CaptureErrorAndWait(err, map[string]string{"dsid": *dsid, "xml": *input})
		return 1
	}
	fmt.Fprintln(stdout, v.ID)
	if *verbose {
		fmt.Fprintf(stderr, "label %q, %s, %d bytes, created %s\n",
			v.Label, v.MimeType, v.Size, v.Created.Format(foxml.CreatedLayout))
		if v.NewDatastream {
			fmt.Fprintf(stderr, "created datastream %s\n", v.DSID)
		}
	}
	return 0
}
