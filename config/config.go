// Package config holds the settings shared by the command line tools.
//
// Settings come from three places. Built in defaults are overridden by an
// optional TOML file, which is in turn overridden by command line flags.
// A file looks like
//
//	sentry_dsn = "https://key@sentry.example.org/3"
//
//	[fedora]
//	url = "http://fedora.example.org:8080"
//	user = "fedoraAdmin"
//	password = "secret"
//	timeout = "5m"
//
//	[export]
//	workers = 4
//	rate = 10000000
//	output = "s3:///bucket/exports"
//	ledger = "ql:/var/lib/foxtools/ledger.db"
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"

	"github.com/ndlib/foxtools/fedoraapi"
	"github.com/ndlib/foxtools/ledger"
	"github.com/ndlib/foxtools/store"
	"github.com/ndlib/foxtools/util"
)

// Config is the merged configuration of a command.
type Config struct {
	SentryDSN string `toml:"sentry_dsn"`
	Fedora    Fedora `toml:"fedora"`
	Export    Export `toml:"export"`
}

// Fedora says how to reach the repository.
type Fedora struct {
	URL      string   `toml:"url"`
	User     string   `toml:"user"`
	Password string   `toml:"password"`
	Timeout  Duration `toml:"timeout"`
}

// Export holds the settings of the export commands.
type Export struct {
	Workers int    `toml:"workers"`
	Rate    int64  `toml:"rate"` // bytes per second, 0 for no limit
	Output  string `toml:"output"`
	Ledger  string `toml:"ledger"`
}

// Duration is a time.Duration written as a string such as "90s" in a file.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Errors
var (
	ErrMissing  = errors.New("Missing required setting")
	ErrBadValue = errors.New("Bad setting")
)

// FileName is the name of the default configuration file in the user's
// home directory.
const FileName = ".foxtools.toml"

// Default returns the built in settings.
func Default() Config {
	return Config{
		SentryDSN: os.Getenv("SENTRY_DSN"),
		Fedora: Fedora{
			Timeout: Duration{fedoraapi.DefaultTimeout},
		},
		Export: Export{
			Workers: 3,
			Output:  ".",
		},
	}
}

// DefaultPath returns the location of the default configuration file, or ""
// if the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, FileName)
}

// Load returns the defaults overlaid with the file fname. An empty fname
// means the default file, which is skipped if it does not exist.
func Load(fname string) (Config, error) {
	cfg := Default()
	if fname == "" {
		fname = DefaultPath()
		if _, err := os.Stat(fname); fname == "" || err != nil {
			return cfg, nil
		}
	}
	if _, err := toml.DecodeFile(fname, &cfg); err != nil {
		return cfg, errors.Wrap(err, fname)
	}
	return cfg, nil
}

// Override copies the value of every flag set on the command line in fs
// with the name of a setting into c. The names are url, user, password,
// timeout, workers, rate, output, ledger, and sentry-dsn. Other flags are
// ignored.
func (c *Config) Override(fs *flag.FlagSet) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		v := f.Value.String()
		switch f.Name {
		case "url":
			c.Fedora.URL = v
		case "user":
			c.Fedora.User = v
		case "password":
			c.Fedora.Password = v
		case "timeout":
			c.Fedora.Timeout.Duration, err = time.ParseDuration(v)
		case "workers":
			c.Export.Workers, err = strconv.Atoi(v)
		case "rate":
			c.Export.Rate, err = strconv.ParseInt(v, 10, 64)
		case "output":
			c.Export.Output = v
		case "ledger":
			c.Export.Ledger = v
		case "sentry-dsn":
			c.SentryDSN = v
		}
		if err != nil {
			err = errors.Wrapf(ErrBadValue, "-%s %s", f.Name, v)
		}
	})
	return err
}

// Check returns ErrMissing if there is not enough to connect to Fedora.
func (c *Config) Check() error {
	if c.Fedora.URL == "" {
		return errors.Wrap(ErrMissing, "fedora url")
	}
	if c.Fedora.User == "" {
		return errors.Wrap(ErrMissing, "fedora user")
	}
	if c.Export.Workers < 0 || c.Export.Rate < 0 {
		return errors.Wrap(ErrBadValue, "negative workers or rate")
	}
	return nil
}

// Connection returns a client for the configured Fedora. If a rate is set
// the returned connection is throttled by a RateCounter, which the caller
// should Stop when done.
func (c *Config) Connection() *fedoraapi.Connection {
	conn := &fedoraapi.Connection{
		HostURL:  c.Fedora.URL,
		User:     c.Fedora.User,
		Password: c.Fedora.Password,
		Timeout:  c.Fedora.Timeout.Duration,
	}
	if c.Export.Rate > 0 {
		conn.Rate = util.NewRateCounter(float64(c.Export.Rate))
	}
	return conn
}

// Parse parses args with fs, on which AddFlags has been called, and returns
// the configuration named by -config overridden by the flags given. Raven is
// pointed at the configured Sentry DSN.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	var fname string
	if f := fs.Lookup("config"); f != nil {
		fname = f.Value.String()
	}
	cfg, err := Load(fname)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Override(fs); err != nil {
		return cfg, err
	}
	if cfg.SentryDSN != "" {
		raven.SetDSN(cfg.SentryDSN)
	}
	return cfg, nil
}

// Store opens the configured export destination.
func (c *Config) Store() (store.Store, error) {
	return store.ParseLocation(c.Export.Output)
}

// Ledger opens the configured ledger, which is nil if none is configured.
func (c *Config) Ledger() (ledger.Ledger, error) {
	return ledger.Open(c.Export.Ledger)
}

// AddFlags registers the flags every network command takes on fs. Their
// defaults are empty so Override only sees values given on the command
// line. The returned pointer holds the value of -config.
func AddFlags(fs *flag.FlagSet) *string {
	fs.String("url", "", "base URL of the Fedora server, e.g. http://localhost:8080")
	fs.String("user", "", "Fedora user name")
	fs.String("password", "", "Fedora password")
	fs.String("timeout", "", "how long to wait for the server to respond, e.g. 10m")
	return fs.String("config", "", "configuration file (default $HOME/"+FileName+")")
}
