// riquery runs the survey queries against the resource index of a Fedora
// server and saves each result as a CSV file named after the query.
//
// Example:
//
//	$ riquery -url http://localhost:8080 -user fedoraAdmin -password secret -output results
//	$ riquery -list
//	$ riquery -only object_count,deleted_objects -parallel 2
//
// An interrupt stops new queries from starting; the running ones are
// allowed to finish.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"

	"github.com/ndlib/foxtools/config"
	"github.com/ndlib/foxtools/fedoraapi"
	"github.com/ndlib/foxtools/queries"
	"github.com/ndlib/foxtools/store"
	"github.com/ndlib/foxtools/util"
)

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, interrupt))
}

func run(args []string, stdout, stderr io.Writer, interrupt <-chan os.Signal) int {
	fs := flag.NewFlagSet("riquery", flag.ContinueOnError)
	fs.SetOutput(stderr)
	config.AddFlags(fs)
	var (
		output   = fs.String("output", "results", "directory, file:path, or s3://host/bucket/prefix to save results in")
		only     = fs.String("only", "", "comma separated names of the queries to run (default all)")
		list     = fs.Bool("list", false, "list the query names and exit")
		parallel = fs.Int("parallel", 1, "number of queries to run at once")
		format   = fs.String("format", fedoraapi.FormatCSV, "result format: CSV or TSV")
		verbose  = fs.Bool("v", false, "log every request")
	)
	cfg, err := config.Parse(fs, args)
	if err == flag.ErrHelp {
		return 0
	} else if err != nil {
		fmt.Fprintln(stderr, "riquery:", err)
		return 2
	}
	if *list {
		for _, name := range queries.Names() {
			fmt.Fprintln(stdout, name)
		}
		return 0
	}
	selected, err := selectQueries(*only)
	if err != nil {
		fmt.Fprintln(stderr, "riquery:", err)
		return 2
	}
	var ext string
	switch *format {
	case fedoraapi.FormatCSV:
		ext = ".csv"
	case fedoraapi.FormatTSV:
		ext = ".tsv"
	default:
		fmt.Fprintf(stderr, "riquery: unsupported format %q\n", *format)
		return 2
	}
	if err := cfg.Check(); err != nil {
		fmt.Fprintln(stderr, "riquery:", err)
		return 2
	}
	s, err := store.ParseLocation(*output)
	if err != nil {
		fmt.Fprintln(stderr, "riquery:", err)
		return 1
	}
	conn := cfg.Connection()
	conn.Verbose = *verbose

	gate := util.NewGate(*parallel)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-interrupt:
			fmt.Fprintln(stderr, "riquery: interrupted, waiting for running queries")
			gate.Stop()
		case <-done:
		}
	}()

	var (
		wg      sync.WaitGroup
		m       sync.Mutex
		failed  int
		skipped int
	)
	for _, q := range selected {
		if !gate.Enter() {
			skipped++
			continue
		}
		wg.Add(1)
		go func(q queries.Query) {
			defer wg.Done()
			defer gate.Leave()
			key := q.Name + ext
			n, err := save(conn, s, key, q.Text, *format)
			m.Lock()
			defer m.Unlock()
			if err != nil {
				failed++
				fmt.Fprintf(stdout, "%s: failed: %s\n", q.Name, err)
				raven.CaptureError(err, map[string]string{"query": q.Name})
				return
			}
			fmt.Fprintf(stdout, "%s: saved %s (%s)\n", q.Name, key, humanize.Bytes(uint64(n)))
		}(q)
	}
	wg.Wait()

	fmt.Fprintf(stdout, "%d queries, %d failed, %d not run\n", len(selected), failed, skipped)
	if failed > 0 || skipped > 0 {
		return 1
	}
	return 0
}

// selectQueries returns the catalog queries named in the comma separated
// list only, or the whole catalog if it is empty.
func selectQueries(only string) ([]queries.Query, error) {
	if only == "" {
		return queries.Catalog, nil
	}
	var result []queries.Query
	for _, name := range strings.Split(only, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		q, ok := queries.Lookup(name)
		if !ok {
			return nil, errors.Errorf("unknown query %q (see -list)", name)
		}
		result = append(result, q)
	}
	return result, nil
}

// save runs query and stores the result under key, replacing any earlier
// result. Nothing is left under key if there is an error.
func save(conn *fedoraapi.Connection, s store.Store, key, query, format string) (int64, error) {
	if err := s.Delete(key); err != nil {
		return 0, err
	}
	w, err := s.Create(key)
	if err != nil {
		return 0, err
	}
	n, err := conn.RISearchTo(w, query, format)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.Delete(key)
		return 0, err
	}
	return n, nil
}
