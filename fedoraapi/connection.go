package fedoraapi

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ndlib/foxtools/util"
)

// A Connection represents a connection with a Fedora 3 server.
// It can be shared between multiple goroutines.
type Connection struct {
	// HostURL is the scheme, host, and port of the server, e.g.
	// "http://localhost:8080". Paths such as /fedora/risearch are added to it.
	HostURL string

	// Credentials for HTTP basic auth. No auth header is sent if User is
	// empty.
	User     string
	Password string

	// Timeout for the server to start its response. Reading the body is
	// not limited, since large or rate limited downloads may take hours.
	// Zero means DefaultTimeout.
	Timeout time.Duration

	// Rate, if not nil, limits how fast response bodies are read.
	Rate *util.RateCounter

	// Verbose logs each request.
	Verbose bool

	once   sync.Once
	client *http.Client
}

// DefaultTimeout is arbitrary, and is just there so we don't hang
// indefinitely should the server never close the connection.
const DefaultTimeout = 10 * time.Minute

// Exported errors. Use errors.Cause() to compare.
var (
	ErrNotFound       = errors.New("Not found in Fedora")
	ErrNotAuthorized  = errors.New("Access denied by Fedora")
	ErrUnexpectedResp = errors.New("Unexpected response code")
)

// do performs an http request using our client, adding authentication.
func (c *Connection) do(req *http.Request) (*http.Response, error) {
	c.once.Do(func() {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = timeout
		c.client = &http.Client{Transport: transport}
	})
	if c.User != "" {
		req.SetBasicAuth(c.User, c.Password)
	}
	if c.Verbose {
		log.Println(req.Method, req.URL)
	}
	return c.client.Do(req)
}

// checkStatus turns a non-200 response into one of our errors. The body is
// closed if an error is returned.
func checkStatus(resp *http.Response, path string) error {
	switch resp.StatusCode {
	case 200:
		return nil
	case 404:
		resp.Body.Close()
		return errors.Wrap(ErrNotFound, path)
	case 401, 403:
		resp.Body.Close()
		return errors.Wrap(ErrNotAuthorized, path)
	default:
		resp.Body.Close()
		return errors.Wrapf(ErrUnexpectedResp, "received status %d for %s", resp.StatusCode, path)
	}
}

// A Body is an open response from Fedora. The caller must close it.
type Body struct {
	io.ReadCloser
	ContentType string
	Length      int64 // -1 if the server did not say
}

// open performs a GET of path and returns the response body.
func (c *Connection) open(path string) (*Body, error) {
	req, err := http.NewRequest("GET", c.HostURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if err := checkStatus(resp, path); err != nil {
		return nil, err
	}
	return &Body{
		ReadCloser:  readCloser{Reader: c.body(resp), Closer: resp.Body},
		ContentType: resp.Header.Get("Content-Type"),
		Length:      resp.ContentLength,
	}, nil
}

// get performs a GET of path and copies the body to w. It returns the
// response's Content-Type and the number of bytes copied.
func (c *Connection) get(w io.Writer, path string) (string, int64, error) {
	body, err := c.open(path)
	if err != nil {
		return "", 0, err
	}
	defer body.Close()
	n, err := io.Copy(w, body)
	if err != nil {
		err = errors.Wrap(err, path)
	}
	return body.ContentType, n, err
}

// post sends form to path and returns the response body.
func (c *Connection) post(path string, form url.Values) (io.ReadCloser, error) {
	req, err := http.NewRequest("POST", c.HostURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.do(req)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if err := checkStatus(resp, path); err != nil {
		return nil, err
	}
	return readCloser{Reader: c.body(resp), Closer: resp.Body}, nil
}

func (c *Connection) body(resp *http.Response) io.Reader {
	if c.Rate == nil {
		return resp.Body
	}
	return c.Rate.Wrap(resp.Body)
}

type readCloser struct {
	io.Reader
	io.Closer
}
