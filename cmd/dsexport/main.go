// dsexport downloads the content of one datastream from many Fedora objects.
//
// The objects are listed in a PID file, or found by asking the resource
// index for every object having the datastream. Files are saved as
// {dsid}/{pid}-{dsid}{ext} under the output location, where the extension
// comes from the datastream's MIME type.
//
// Example:
//
//	$ dsexport -url http://localhost:8080 -user fedoraAdmin -password secret \
//		-dsid OBJ -output exports -ledger ql:exports.db
//
// Objects whose file is already saved are skipped unless -overwrite is given.
// After a run with failures, -retry-failed downloads only the objects whose
// last attempt recorded in the ledger failed.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"

	"github.com/ndlib/foxtools/config"
	"github.com/ndlib/foxtools/export"
	"github.com/ndlib/foxtools/fedoraapi"
	"github.com/ndlib/foxtools/pidlist"
	"github.com/ndlib/foxtools/queries"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

var errUsage = errors.New("usage")

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dsexport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	config.AddFlags(fs)
	var (
		dsid      = fs.String("dsid", "", "ID of the datastream to download")
		pidfile   = fs.String("pid-file", "", "file listing the PIDs to download, one per line, or - for standard input")
		retry     = fs.Bool("retry-failed", false, "download the PIDs whose last attempt failed, according to the ledger")
		overwrite = fs.Bool("overwrite", false, "replace files which were already downloaded")
		verbose   = fs.Bool("v", false, "log every file")
		quiet     = fs.Bool("q", false, "do not show progress")
	)
	fs.String("output", "", "where to save files: a directory, file:path, or s3://host/bucket/prefix")
	fs.String("ledger", "", "record results in memory, ql:path, or mysql:dsn")
	fs.Int("workers", 0, "number of simultaneous downloads (default 3)")
	fs.Int64("rate", 0, "limit downloads to this many bytes per second")

	cfg, err := config.Parse(fs, args)
	if err == flag.ErrHelp {
		return 0
	} else if err != nil {
		fmt.Fprintln(stderr, "dsexport:", err)
		return 2
	}
	if *dsid == "" {
		fmt.Fprintln(stderr, "dsexport: -dsid is required")
		return 2
	}
	if *retry && *pidfile != "" {
		fmt.Fprintln(stderr, "dsexport: give only one of -pid-file and -retry-failed")
		return 2
	}
	if err := cfg.Check(); err != nil {
		fmt.Fprintln(stderr, "dsexport:", err)
		return 2
	}

	err = doExport(cfg, *dsid, *pidfile, *retry, *overwrite, *verbose, *quiet, stdout, stderr)
	if errors.Cause(err) == errUsage {
		fmt.Fprintln(stderr, "dsexport:", err)
		return 2
	} else if err != nil {
		fmt.Fprintln(stderr, "dsexport:", err)
		raven.CaptureErrorAndWait(err, map[string]string{"dsid": *dsid})
		return 1
	}
	return 0
}

func doExport(cfg config.Config, dsid, pidfile string, retry, overwrite, verbose, quiet bool, stdout, stderr io.Writer) error {
	conn := cfg.Connection()
	conn.Verbose = verbose
	if conn.Rate != nil {
		defer conn.Rate.Stop()
	}
	l, err := cfg.Ledger()
	if err != nil {
		return err
	}
	if l != nil {
		defer l.Close()
	}
	s, err := cfg.Store()
	if err != nil {
		return err
	}

	var jobs []export.Job
	switch {
	case retry:
		if l == nil {
			return errors.Wrap(errUsage, "-retry-failed needs a ledger")
		}
		jobs, err = export.FailedJobs(l, dsid)
	case pidfile != "":
		var pids []string
		pids, err = pidlist.ReadFile(pidfile)
		jobs = export.Jobs(pids, dsid)
	default:
		var pids []string
		pids, err = findObjects(conn, dsid)
		jobs = export.Jobs(pids, dsid)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Downloading %s from %d objects\n", dsid, len(jobs))

	e := &export.Exporter{
		Source:    conn,
		Store:     s,
		Ledger:    l,
		Workers:   cfg.Export.Workers,
		Overwrite: overwrite,
		Verbose:   verbose,
	}
	var progress *export.Progress
	if !quiet {
		progress = export.NewProgress(stderr, len(jobs))
		e.Stats = progress
	}
	sum := e.Run(jobs)
	if progress != nil {
		progress.Finish()
	}
	fmt.Fprintln(stdout, sum)
	if sum.Failed > 0 {
		return errors.Errorf("%d downloads failed", sum.Failed)
	}
	return nil
}

// findObjects asks the resource index for every object with the datastream
// dsid.
func findObjects(conn *fedoraapi.Connection, dsid string) ([]string, error) {
	query, err := queries.ObjectsWithDatastream(dsid)
	if err != nil {
		return nil, errors.Wrap(errUsage, err.Error())
	}
	rows, err := conn.Tuples(query)
	if err != nil {
		return nil, err
	}
	pids := make([]string, 0, len(rows))
	for _, row := range rows {
		pids = append(pids, row["obj"])
	}
	return pidlist.Unique(pids), nil
}
