package fedoraapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/ndlib/foxtools/fedoraapi/fedoratest"
	"github.com/ndlib/foxtools/util"
)

func newServer(t *testing.T) (*fedoratest.Fake, *fedoratest.ErrorServer, *httptest.Server) {
	t.Helper()
	f := fedoratest.New()
	f.User = "fedoraAdmin"
	f.Password = "secret"
	es := fedoratest.NewErrorServer(f)
	return f, es, httptest.NewServer(es)
}

func TestDatastreamContent(t *testing.T) {
	f, es, srv := newServer(t)
	defer srv.Close()
	f.AddDatastream("test:1", "OBJ", "image/jpeg", []byte("jpeg bytes"))
	f.AddDatastream("test:1", "MODS", "", []byte("<mods/>"))
	c := &Connection{HostURL: srv.URL, User: "fedoraAdmin", Password: "secret"}

	var table = []struct {
		pid, dsid string
		body      string
		ctype     string
		err       error
	}{
		{"test:1", "OBJ", "jpeg bytes", "image/jpeg", nil},
		{"test:1", "TN", "", "", ErrNotFound},
		{"test:2", "OBJ", "", "", ErrNotFound},
	}
	for _, row := range table {
		var buf bytes.Buffer
		ctype, n, err := c.DatastreamContent(&buf, row.pid, row.dsid)
		if errors.Cause(err) != row.err {
			t.Errorf("%s/%s: Received %v, expected %v", row.pid, row.dsid, err, row.err)
			continue
		}
		if buf.String() != row.body || n != int64(len(row.body)) {
			t.Errorf("%s/%s: Received %q (%d), expected %q", row.pid, row.dsid, buf.String(), n, row.body)
		}
		if ctype != row.ctype {
			t.Errorf("%s/%s: Received %q, expected %q", row.pid, row.dsid, ctype, row.ctype)
		}
	}

	es.Reset([]fedoratest.Play{
		{When: 0, Status: 500},
		{When: 1, Status: 403},
	})
	_, _, err := c.DatastreamContent(&bytes.Buffer{}, "test:1", "OBJ")
	if errors.Cause(err) != ErrUnexpectedResp {
		t.Errorf("Received %v, expected %v", err, ErrUnexpectedResp)
	} else if !strings.Contains(err.Error(), "500") {
		t.Errorf("error %q does not give the status", err)
	}
	_, _, err = c.DatastreamContent(&bytes.Buffer{}, "test:1", "OBJ")
	if errors.Cause(err) != ErrNotAuthorized {
		t.Errorf("Received %v, expected %v", err, ErrNotAuthorized)
	}
	_, _, err = c.DatastreamContent(&bytes.Buffer{}, "test:1", "OBJ")
	if err != nil {
		t.Errorf("Received %v after playbook ran out", err)
	}
}

func TestBadCredentials(t *testing.T) {
	f, _, srv := newServer(t)
	defer srv.Close()
	f.AddObject("test:1", []byte("<foxml/>"))
	for _, c := range []*Connection{
		{HostURL: srv.URL},
		{HostURL: srv.URL, User: "fedoraAdmin", Password: "wrong"},
	} {
		_, _, err := c.ExportObject(&bytes.Buffer{}, "test:1")
		if errors.Cause(err) != ErrNotAuthorized {
			t.Errorf("user %q: Received %v, expected %v", c.User, err, ErrNotAuthorized)
		}
	}
}

func TestExportObject(t *testing.T) {
	f, _, srv := newServer(t)
	defer srv.Close()
	f.AddObject("test:1", []byte("<foxml:digitalObject/>"))
	c := &Connection{HostURL: srv.URL, User: "fedoraAdmin", Password: "secret", Timeout: time.Minute}
	var buf bytes.Buffer
	ctype, n, err := c.ExportObject(&buf, "test:1")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if ctype != "text/xml" || n != 22 || buf.String() != "<foxml:digitalObject/>" {
		t.Errorf("Received %q %d %q", ctype, n, buf.String())
	}
	_, _, err = c.ExportObject(&buf, "test:9")
	if errors.Cause(err) != ErrNotFound {
		t.Errorf("Received %v, expected %v", err, ErrNotFound)
	}
}

func TestExportObjectRateLimited(t *testing.T) {
	f, _, srv := newServer(t)
	defer srv.Close()
	f.AddObject("test:1", bytes.Repeat([]byte("x"), 5000))
	rc := util.NewRateCounter(1e6)
	defer rc.Stop()
	c := &Connection{HostURL: srv.URL, User: "fedoraAdmin", Password: "secret", Rate: rc}
	var buf bytes.Buffer
	_, n, err := c.ExportObject(&buf, "test:1")
	if err != nil || n != 5000 {
		t.Errorf("Received %d, %v", n, err)
	}
}

func TestTimeout(t *testing.T) {
	// headers arrive at once, the body trickles in for longer than Timeout
	slowBody := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(200)
		for i := 0; i < 4; i++ {
			w.Write([]byte("abcd"))
			w.(http.Flusher).Flush()
			time.Sleep(50 * time.Millisecond)
		}
	}))
	defer slowBody.Close()
	c := &Connection{HostURL: slowBody.URL, Timeout: 50 * time.Millisecond}
	var buf bytes.Buffer
	_, n, err := c.ExportObject(&buf, "test:1")
	if err != nil || n != 16 {
		t.Errorf("Received %d, %v, expected 16, nil", n, err)
	}

	slowHeaders := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer slowHeaders.Close()
	c = &Connection{HostURL: slowHeaders.URL, Timeout: 50 * time.Millisecond}
	buf.Reset()
	_, _, err = c.ExportObject(&buf, "test:1")
	if err == nil {
		t.Errorf("Received nil error, expected a timeout")
	}
}

func TestTuples(t *testing.T) {
	f, _, srv := newServer(t)
	defer srv.Close()
	f.Query = func(q string) fedoratest.Result {
		if strings.Contains(q, "broken") {
			return fedoratest.Result{Status: 500}
		}
		return fedoratest.Result{
			Columns: []string{"pid", "model"},
			Rows: [][]string{
				{"info:fedora/test:1", "info:fedora/islandora:sp_basic_image"},
				{"info:fedora/test:2", "info:fedora/islandora:bookCModel"},
			},
		}
	}
	c := &Connection{HostURL: srv.URL, User: "fedoraAdmin", Password: "secret"}
	rows, err := c.Tuples("SELECT ?pid ?model WHERE {}")
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Received %d rows, expected 2", len(rows))
	}
	if TrimPID(rows[1]["pid"]) != "test:2" || rows[0]["model"] != "info:fedora/islandora:sp_basic_image" {
		t.Errorf("Received %v", rows)
	}
	if q := f.Queries(); len(q) != 1 || q[0] != "SELECT ?pid ?model WHERE {}" {
		t.Errorf("Received queries %v", q)
	}

	_, err = c.Tuples("broken")
	if errors.Cause(err) != ErrUnexpectedResp {
		t.Errorf("Received %v, expected %v", err, ErrUnexpectedResp)
	}
}

func TestRISearchCSV(t *testing.T) {
	f, _, srv := newServer(t)
	defer srv.Close()
	f.Query = func(q string) fedoratest.Result {
		return fedoratest.Result{
			Columns: []string{"model", "count"},
			Rows:    [][]string{{"info:fedora/a:b", "12"}},
		}
	}
	c := &Connection{HostURL: srv.URL, User: "fedoraAdmin", Password: "secret"}
	b, err := c.RISearch("q", FormatCSV)
	if err != nil {
		t.Fatalf("Received %s", err)
	}
	const goal = "model,count\ninfo:fedora/a:b,12\n"
	if string(b) != goal {
		t.Errorf("Received %q, expected %q", b, goal)
	}
	var buf bytes.Buffer
	n, err := c.RISearchTo(&buf, "q", FormatCSV)
	if err != nil || buf.String() != goal || n != int64(len(goal)) {
		t.Errorf("Received %q, %d, %v", buf.String(), n, err)
	}
}

func TestTrimPID(t *testing.T) {
	var table = []struct{ input, output string }{
		{"info:fedora/test:1", "test:1"},
		{"test:1", "test:1"},
		{"", ""},
	}
	for _, row := range table {
		if got := TrimPID(row.input); got != row.output {
			t.Errorf("Received %q, expected %q", got, row.output)
		}
	}
}
