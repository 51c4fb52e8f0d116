// foxmlexport saves the archive FOXML of many Fedora objects.
//
// The archive export inlines managed datastream content, so each file is a
// complete copy of its object. Files are saved as FOXML/{pid}-FOXML.xml
// under the output location.
//
// Example:
//
//	$ foxmlexport -url http://localhost:8080 -user fedoraAdmin -password secret \
//		-pid-file pids.txt -output s3:///bucket/migration
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
	"github.com/ndlib/foxtools/pidlist"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("foxmlexport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	config.AddFlags(fs)
	var (
		pidfile   = fs.String("pid-file", "", "file listing the PIDs to export, one per line, or - for standard input")
		retry     = fs.Bool("retry-failed", false, "export the PIDs whose last attempt failed, according to the ledger")
		overwrite = fs.Bool("overwrite", false, "replace files which were already exported")
		verbose   = fs.Bool("v", false, "log every file")
		quiet     = fs.Bool("q", false, "do not show progress")
	)
	fs.String("output", "", "where to save files: a directory, file:path, or s3://host/bucket/prefix")
	fs.String("ledger", "", "record results in memory, ql:path, or mysql:dsn")
	fs.Int("workers", 0, "number of simultaneous exports (default 3)")
	fs.Int64("rate", 0, "limit downloads to this many bytes per second")

	cfg, err := config.Parse(fs, args)
	if err == flag.ErrHelp {
		return 0
	} else if err != nil {
		fmt.Fprintln(stderr, "foxmlexport:", err)
		return 2
	}
	if (*pidfile == "") == !*retry {
		fmt.Fprintln(stderr, "foxmlexport: give one of -pid-file and -retry-failed")
		return 2
	}
	if err := cfg.Check(); err != nil {
		fmt.Fprintln(stderr, "foxmlexport:", err)
		return 2
	}

	conn := cfg.Connection()
	conn.Verbose = *verbose
	if conn.Rate != nil {
		defer conn.Rate.Stop()
	}
	sum, err := exportObjects(cfg, conn, *pidfile, *overwrite, *verbose, *quiet, stdout, stderr)
	if err == nil && sum.Failed > 0 {
		err = errors.Errorf("%d exports failed", sum.Failed)
	}
	if err != nil {
		fmt.Fprintln(stderr, "foxmlexport:", err)
		raven.CaptureErrorAndWait(err, nil)
		return 1
	}
	return 0
}

func exportObjects(cfg config.Config, src export.Source, pidfile string, overwrite, verbose, quiet bool, stdout, stderr io.Writer) (export.Summary, error) {
	var sum export.Summary
	l, err := cfg.Ledger()
	if err != nil {
		return sum, err
	}
	if l != nil {
		defer l.Close()
	}
	s, err := cfg.Store()
	if err != nil {
		return sum, err
	}

	var jobs []export.Job
	if pidfile != "" {
		var pids []string
		pids, err = pidlist.ReadFile(pidfile)
		jobs = export.Jobs(pids, export.FOXML)
	} else if l == nil {
		err = errors.New("-retry-failed needs a ledger")
	} else {
		jobs, err = export.FailedJobs(l, export.FOXML)
	}
	if err != nil {
		return sum, err
	}
	fmt.Fprintf(stdout, "Exporting %d objects\n", len(jobs))

	e := &export.Exporter{
		Source:    src,
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
	sum = e.Run(jobs)
	if progress != nil {
		progress.Finish()
	}
	fmt.Fprintln(stdout, sum)
	return sum, nil
}
