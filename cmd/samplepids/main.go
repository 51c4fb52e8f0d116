// samplepids finds one example object for every pairing of a content model
// with a datastream, to make a small but representative set of test data
// for a migration.
//
// Example:
//
//	$ samplepids -url http://localhost:8080 -user fedoraAdmin -password secret -dsids OBJ,MODS
//
// The grouping is printed and the PIDs are written, one per line, to
// sample_data_pids.txt in the output location. The file can be given to
// dsexport and foxmlexport with -pid-file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/getsentry/raven-go"

	"github.com/ndlib/foxtools/config"
	"github.com/ndlib/foxtools/fedoraapi"
	"github.com/ndlib/foxtools/pidlist"
	"github.com/ndlib/foxtools/queries"
	"github.com/ndlib/foxtools/store"
)

// OutputName is the file the PIDs are written to.
const OutputName = "sample_data_pids.txt"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("samplepids", flag.ContinueOnError)
	fs.SetOutput(stderr)
	config.AddFlags(fs)
	var (
		dsids   = fs.String("dsids", "", "comma separated datastream IDs to consider")
		output  = fs.String("output", "output", "directory, file:path, or s3://host/bucket/prefix to write "+OutputName+" to")
		verbose = fs.Bool("v", false, "log every request")
	)
	cfg, err := config.Parse(fs, args)
	if err == flag.ErrHelp {
		return 0
	} else if err != nil {
		fmt.Fprintln(stderr, "samplepids:", err)
		return 2
	}
	var list []string
	for _, dsid := range strings.Split(*dsids, ",") {
		if dsid = strings.TrimSpace(dsid); dsid != "" {
			list = append(list, dsid)
		}
	}
	if len(list) == 0 {
		fmt.Fprintln(stderr, "samplepids: -dsids is required")
		return 2
	}
	if err := cfg.Check(); err != nil {
		fmt.Fprintln(stderr, "samplepids:", err)
		return 2
	}
	conn := cfg.Connection()
	conn.Verbose = *verbose

	samples, err := findSamples(conn, list)
	if err != nil {
		fmt.Fprintln(stderr, "samplepids:", err)
		raven.CaptureErrorAndWait(err, nil)
		return 1
	}
	if len(samples) == 0 {
		fmt.Fprintln(stdout, "No PIDs found")
		return 0
	}
	var pids []string
	model := ""
	for _, smp := range samples {
		if smp.Model != model {
			model = smp.Model
			fmt.Fprintf(stdout, "\nContent Model: %s\n", model)
		}
		fmt.Fprintf(stdout, "  Datastream: %s\n", smp.DSID)
		fmt.Fprintf(stdout, "    PID: %s\n", smp.PID)
		pids = append(pids, smp.PID)
	}

	s, err := store.ParseLocation(*output)
	if err == nil {
		err = writePIDs(s, pidlist.Unique(pids))
	}
	if err != nil {
		fmt.Fprintln(stderr, "samplepids:", err)
		raven.CaptureErrorAndWait(err, nil)
		return 1
	}
	fmt.Fprintf(stdout, "PIDs written to %s\n", strings.TrimSuffix(*output, "/")+"/"+OutputName)
	return 0
}

// A sample is an object having a content model and a datastream.
type sample struct {
	Model string
	DSID  string
	PID   string
}

// findSamples returns at most one sample for each content model in use and
// each of dsids, grouped by content model.
func findSamples(conn *fedoraapi.Connection, dsids []string) ([]sample, error) {
	rows, err := conn.Tuples(queries.ContentModels())
	if err != nil {
		return nil, err
	}
	var result []sample
	for _, row := range rows {
		model := fedoraapi.TrimPID(row["model"])
		if model == "" {
			continue
		}
		for _, dsid := range dsids {
			query, err := queries.SamplePID(model, dsid)
			if err != nil {
				return nil, err
			}
			found, err := conn.Tuples(query)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				result = append(result, sample{
					Model: model,
					DSID:  dsid,
					PID:   fedoraapi.TrimPID(f["obj"]),
				})
			}
		}
	}
	return result, nil
}

func writePIDs(s store.Store, pids []string) error {
	if err := s.Delete(OutputName); err != nil {
		return err
	}
	w, err := s.Create(OutputName)
	if err != nil {
		return err
	}
	err = pidlist.Write(w, pids)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}
