/*
Package fedoratest provides a fake Fedora 3 server for testing code which
talks to the REST API and the resource index.

	f := fedoratest.New()
	f.AddDatastream("test:1", "OBJ", "image/jpeg", data)
	srv := httptest.NewServer(f)
	defer srv.Close()
	conn := &fedoraapi.Connection{HostURL: srv.URL}
*/
package fedoratest

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/julienschmidt/httprouter"
)

// A Fake emulates the parts of Fedora the export tools use: object export,
// datastream content, and tuple queries against the resource index. It is
// safe for concurrent use.
type Fake struct {
	// If User is not empty requests must use basic auth with these
	// credentials.
	User     string
	Password string

	// Query answers resource index queries. If nil every query has an
	// empty result.
	Query func(query string) Result

	router *httprouter.Router

	m       sync.Mutex
	objects map[string]*object
	queries []string
}

// A Result is the answer to a tuple query.
type Result struct {
	Columns []string
	Rows    [][]string

	// Status, if not zero, is returned instead of the result.
	Status int
}

type object struct {
	foxml       []byte
	datastreams map[string]datastream
}

type datastream struct {
	mimetype string
	content  []byte
}

// New returns an empty Fake.
func New() *Fake {
	f := &Fake{objects: make(map[string]*object)}
	r := httprouter.New()
	r.GET("/fedora/objects/:pid/export", f.export)
	r.GET("/fedora/objects/:pid/datastreams/:dsid/content", f.content)
	r.POST("/fedora/risearch", f.risearch)
	f.router = r
	return f
}

func (f *Fake) obj(pid string) *object {
	o := f.objects[pid]
	if o == nil {
		o = &object{datastreams: make(map[string]datastream)}
		f.objects[pid] = o
	}
	return o
}

// AddObject sets the FOXML returned by an export of pid.
func (f *Fake) AddObject(pid string, foxml []byte) {
	f.m.Lock()
	defer f.m.Unlock()
	f.obj(pid).foxml = foxml
}

// AddDatastream sets the content of a datastream.
func (f *Fake) AddDatastream(pid, dsid, mimetype string, content []byte) {
	f.m.Lock()
	defer f.m.Unlock()
	f.obj(pid).datastreams[dsid] = datastream{mimetype: mimetype, content: content}
}

// Queries returns every query received so far.
func (f *Fake) Queries() []string {
	f.m.Lock()
	defer f.m.Unlock()
	return append([]string(nil), f.queries...)
}

func (f *Fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.User != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != f.User || pass != f.Password {
			w.WriteHeader(401)
			return
		}
	}
	f.router.ServeHTTP(w, r)
}

func (f *Fake) export(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if r.FormValue("context") != "archive" {
		w.WriteHeader(400)
		return
	}
	f.m.Lock()
	o := f.objects[ps.ByName("pid")]
	f.m.Unlock()
	if o == nil || o.foxml == nil {
		w.WriteHeader(404)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Write(o.foxml)
}

func (f *Fake) content(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	f.m.Lock()
	var ds datastream
	var ok bool
	if o := f.objects[ps.ByName("pid")]; o != nil {
		ds, ok = o.datastreams[ps.ByName("dsid")]
	}
	f.m.Unlock()
	if !ok {
		w.WriteHeader(404)
		return
	}
	if ds.mimetype != "" {
		w.Header().Set("Content-Type", ds.mimetype)
	}
	w.Write(ds.content)
}

func (f *Fake) risearch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if r.FormValue("type") != "tuples" || r.FormValue("lang") != "sparql" {
		w.WriteHeader(400)
		return
	}
	query := r.FormValue("query")
	f.m.Lock()
	f.queries = append(f.queries, query)
	f.m.Unlock()
	var result Result
	if f.Query != nil {
		result = f.Query(query)
	}
	if result.Status != 0 {
		w.WriteHeader(result.Status)
		return
	}
	switch r.FormValue("format") {
	case "CSV":
		w.Header().Set("Content-Type", "text/plain")
		cw := csv.NewWriter(w)
		cw.Write(result.Columns)
		cw.WriteAll(result.Rows)
	case "json":
		w.Header().Set("Content-Type", "application/json")
		rows := make([]map[string]string, 0, len(result.Rows))
		for _, row := range result.Rows {
			m := make(map[string]string)
			for i, col := range result.Columns {
				if i < len(row) {
					m[col] = row[i]
				}
			}
			rows = append(rows, m)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"results": rows})
	default:
		w.WriteHeader(400)
	}
}
