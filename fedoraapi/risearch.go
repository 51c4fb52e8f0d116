package fedoraapi

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/url"

	"github.com/antonholmquist/jason"
	"github.com/pkg/errors"
)

// Result formats the resource index understands for tuple queries.
const (
	FormatCSV    = "CSV"
	FormatTSV    = "TSV"
	FormatJSON   = "json"
	FormatSparql = "Sparql"
)

// RISearch runs a SPARQL tuple query against the resource index and returns
// the raw response in the given format.
func (c *Connection) RISearch(query, format string) ([]byte, error) {
	body, err := c.risearch(query, format)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ioutil.ReadAll(body)
}

// RISearchTo is like RISearch but copies the response to w.
func (c *Connection) RISearchTo(w io.Writer, query, format string) (int64, error) {
	body, err := c.risearch(query, format)
	if err != nil {
		return 0, err
	}
	defer body.Close()
	return io.Copy(w, body)
}

// risearch posts a query. An empty limit means no limit.
func (c *Connection) risearch(query, format string) (io.ReadCloser, error) {
	form := url.Values{}
	form.Set("type", "tuples")
	form.Set("lang", "sparql")
	form.Set("format", format)
	form.Set("dt", "on")
	form.Set("query", query)
	form.Set("limit", "")
	return c.post("/fedora/risearch", form)
}

// Tuples runs a SPARQL tuple query and returns one map per result row, keyed
// by variable name. Resource values are returned as given, e.g.
// "info:fedora/islandora:42"; use TrimPID to get a bare PID.
func (c *Connection) Tuples(query string) ([]map[string]string, error) {
	body, err := c.risearch(query, FormatJSON)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	v, err := jason.NewObjectFromReader(body)
	if err != nil {
		return nil, errors.Wrap(err, "decoding risearch results")
	}
	rows, err := v.GetObjectArray("results")
	if err != nil {
		return nil, errors.Wrap(err, "decoding risearch results")
	}
	result := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]string)
		for k, val := range row.Map() {
			m[k] = valueString(val)
		}
		result = append(result, m)
	}
	return result, nil
}

func valueString(v *jason.Value) string {
	if s, err := v.String(); err == nil {
		return s
	}
	if v.Null() == nil {
		return ""
	}
	return fmt.Sprint(v.Interface())
}
