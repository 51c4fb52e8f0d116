// Package export downloads datastream content and archive FOXML from a
// Fedora repository into a store, using a fixed number of workers.
package export

import (
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/stats"
	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"

	"github.com/ndlib/foxtools/fedoraapi"
	"github.com/ndlib/foxtools/ledger"
	"github.com/ndlib/foxtools/mimetypes"
	"github.com/ndlib/foxtools/store"
	"github.com/ndlib/foxtools/util"
)

// FOXML is the What of a job exporting a whole object.
const FOXML = "FOXML"

// DefaultWorkers is used when Exporter.Workers is not positive.
const DefaultWorkers = 3

// A Job is one thing to download. An empty DSID means the archive FOXML
// of the object.
type Job struct {
	PID  string
	DSID string
}

// What is the datastream id of the job, or FOXML.
func (j Job) What() string {
	if j.DSID == "" {
		return FOXML
	}
	return j.DSID
}

// A Source opens downloads. *fedoraapi.Connection is a Source.
type Source interface {
	OpenDatastreamContent(pid, dsid string) (*fedoraapi.Body, error)
	OpenExport(pid string) (*fedoraapi.Body, error)
}

// An Exporter runs jobs against a Source and saves the results in Store.
// A directory named after each job's What is made in the store, holding
// files named "{pid}-{what}{ext}", where ext is taken from the response's
// Content-Type.
type Exporter struct {
	Source  Source
	Store   store.Store
	Ledger  ledger.Ledger // may be nil
	Stats   stats.Client  // may be nil
	Workers int

	// Overwrite replaces files already in the store. Otherwise the job is
	// skipped.
	Overwrite bool
	Verbose   bool

	// RunID tags every ledger entry. One is made if it is empty.
	RunID string

	m        sync.Mutex
	dirs     map[string]store.Store
	existing map[string][]string // sorted keys in each directory
}

// A Result is the outcome of a single job.
type Result struct {
	Job
	Key    string // full key in the store
	Size   int64
	MD5    string
	Status ledger.Status
	Err    error
}

// A Summary totals the results of a Run.
type Summary struct {
	OK       int
	Failed   int
	Skipped  int
	Bytes    int64
	Elapsed  time.Duration
	Failures []Result
}

// Stat keys passed to the stats client.
const (
	StatOK      = "export.ok"
	StatFailed  = "export.failed"
	StatSkipped = "export.skipped"
	StatBytes   = "export.bytes"
	StatFetch   = "export.fetch"
)

// Run performs every job and waits for them to finish. A failing job does
// not stop the others.
func (e *Exporter) Run(jobs []Job) Summary {
	start := time.Now()
	if e.RunID == "" {
		e.RunID = ledger.NewRunID()
	}
	nworkers := e.Workers
	if nworkers <= 0 {
		nworkers = DefaultWorkers
	}
	c := make(chan Job)
	results := make(chan Result)
	var wg sync.WaitGroup
	for i := 0; i < nworkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range c {
				results <- e.Export(job)
			}
		}()
	}
	go func() {
		for _, job := range jobs {
			c <- job
		}
		close(c)
		wg.Wait()
		close(results)
	}()

	var sum Summary
	for r := range results {
		switch r.Status {
		case ledger.StatusOK:
			sum.OK++
			sum.Bytes += r.Size
		case ledger.StatusSkipped:
			sum.Skipped++
		default:
			sum.Failed++
			sum.Failures = append(sum.Failures, r)
		}
	}
	sum.Elapsed = time.Since(start)
	return sum
}

// Export performs a single job. It is safe to call from many goroutines.
func (e *Exporter) Export(job Job) Result {
	what := job.What()
	r := Result{Job: job}
	dir, err := e.dir(what)
	if err != nil {
		return e.finish(r, err)
	}
	stem := job.PID + "-" + what
	old := e.keysFor(what, stem)
	if len(old) > 0 && !e.Overwrite {
		r.Key = what + "/" + old[0]
		r.Status = ledger.StatusSkipped
		return e.finish(r, nil)
	}

	t := stats.BumpTime(e.Stats, StatFetch)
	var body *fedoraapi.Body
	if job.DSID == "" {
		body, err = e.Source.OpenExport(job.PID)
	} else {
		body, err = e.Source.OpenDatastreamContent(job.PID, job.DSID)
	}
	if err != nil {
		t.End()
		return e.finish(r, err)
	}
	defer body.Close()
	ext, _ := mimetypes.ExtensionByType(body.ContentType)
	key := stem + ext
	r.Key = what + "/" + key

	for _, k := range old {
		if err := dir.Delete(k); err != nil {
			t.End()
			return e.finish(r, err)
		}
		e.removeKey(what, k)
	}
	r.Size, r.MD5, err = save(dir, key, body)
	t.End()
	if err == nil {
		e.addKey(what, key)
	}
	return e.finish(r, err)
}

// save copies r into key, removing whatever was written if anything
// fails.
func save(s store.Store, key string, r io.Reader) (int64, string, error) {
	w, err := s.Create(key)
	if err != nil {
		return 0, "", err
	}
	hw := util.NewMD5Writer(w)
	_, err = io.Copy(hw, r)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.Delete(key)
		return 0, "", err
	}
	return hw.Size(), hw.MD5(), nil
}

// finish fills in the status of r, logs it, and records it in the ledger.
func (e *Exporter) finish(r Result, err error) Result {
	if err != nil {
		r.Status = ledger.StatusFailed
		r.Err = errors.Wrapf(err, "%s %s", r.PID, r.What())
	}
	switch r.Status {
	case ledger.StatusOK:
		stats.BumpSum(e.Stats, StatBytes, float64(r.Size))
		stats.BumpSum(e.Stats, StatOK, 1)
		if e.Verbose {
			log.Println("saved", r.Key, r.Size, r.MD5)
		}
	case ledger.StatusSkipped:
		stats.BumpSum(e.Stats, StatSkipped, 1)
		if e.Verbose {
			log.Println("skipping", r.Key, "(exists)")
		}
	default:
		stats.BumpSum(e.Stats, StatFailed, 1)
		log.Println(r.Err)
	}
	if e.Ledger == nil {
		return r
	}
	entry := ledger.Entry{
		Run:    e.RunID,
		PID:    r.PID,
		What:   r.What(),
		Key:    r.Key,
		Size:   r.Size,
		MD5:    r.MD5,
		Status: r.Status,
	}
	if r.Err != nil {
		entry.Note = r.Err.Error()
	}
	if lerr := e.Ledger.Record(entry); lerr != nil {
		log.Println("ledger:", lerr)
		raven.CaptureError(lerr, map[string]string{"pid": r.PID})
	}
	return r
}

// dir returns the store for the directory what, listing its contents the
// first time it is used.
func (e *Exporter) dir(what string) (store.Store, error) {
	e.m.Lock()
	defer e.m.Unlock()
	if s, ok := e.dirs[what]; ok {
		return s, nil
	}
	if e.dirs == nil {
		e.dirs = make(map[string]store.Store)
		e.existing = make(map[string][]string)
	}
	s := store.NewWithPrefix(e.Store, what+"/")
	keys, err := s.ListPrefix("")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	e.existing[what] = keys
	e.dirs[what] = s
	return s, nil
}

// keysFor returns the keys in the directory what which are stem followed
// by an optional extension.
func (e *Exporter) keysFor(what, stem string) []string {
	e.m.Lock()
	defer e.m.Unlock()
	keys := e.existing[what]
	var result []string
	for i := sort.SearchStrings(keys, stem); i < len(keys); i++ {
		k := keys[i]
		if !strings.HasPrefix(k, stem) {
			break
		}
		if isExtension(k[len(stem):]) {
			result = append(result, k)
		}
	}
	return result
}

func isExtension(s string) bool {
	return s == "" || (s[0] == '.' && !strings.ContainsAny(s, "-:/"))
}

func (e *Exporter) removeKey(what, key string) {
	e.m.Lock()
	defer e.m.Unlock()
	keys := e.existing[what]
	i := sort.SearchStrings(keys, key)
	if i < len(keys) && keys[i] == key {
		e.existing[what] = append(keys[:i], keys[i+1:]...)
	}
}

func (e *Exporter) addKey(what, key string) {
	e.m.Lock()
	defer e.m.Unlock()
	keys := e.existing[what]
	i := sort.SearchStrings(keys, key)
	if i < len(keys) && keys[i] == key {
		return
	}
	keys = append(keys, "")
	copy(keys[i+1:], keys[i:])
	keys[i] = key
	e.existing[what] = keys
}

// FailedJobs returns a job for every PID whose latest export of what
// failed according to l.
func FailedJobs(l ledger.Ledger, what string) ([]Job, error) {
	pids, err := l.Failed(what)
	if err != nil {
		return nil, err
	}
	return Jobs(pids, what), nil
}

// Jobs makes a job exporting what for each pid.
func Jobs(pids []string, what string) []Job {
	dsid := what
	if what == FOXML {
		dsid = ""
	}
	jobs := make([]Job, len(pids))
	for i, pid := range pids {
		jobs[i] = Job{PID: pid, DSID: dsid}
	}
	return jobs
}
