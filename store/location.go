package store

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/pkg/errors"
)

// ErrBadLocation means a location string could not be turned into a store.
var ErrBadLocation = errors.New("Cannot parse store location")

// splitBucketPrefix will take a path and separate the bucket name from a
// prefix, if any. The prefix returned is either empty or ends with a slash.
//
// examples:
//
//	"" -> ("", "")
//	"bucket" -> ("bucket", "")
//	"bucket/and/a/prefix" -> ("bucket", "and/a/prefix/")
func splitBucketPrefix(location string) (bucket, prefix string) {
	location = strings.TrimPrefix(location, "/")
	if location == "" {
		return
	}
	v := strings.SplitN(location, "/", 2)
	bucket = v[0]
	if len(v) > 1 {
		prefix = v[1]
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	return
}

// ParseLocation creates an appropriate store based on location.
// If location is empty, a memory store is returned. A plain path or a
// "file:" URL gives a FileSystem store, creating the directory if needed.
// "s3://host:port/bucket/prefix" gives an S3 store using that endpoint, and
// "s3:/bucket/prefix" uses the default AWS endpoint. Credentials come from
// the usual AWS environment variables and files.
func ParseLocation(location string) (Store, error) {
	if location == "" {
		return NewMemory(), nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(ErrBadLocation, "%s: %s", location, err)
	}
	switch u.Scheme {
	case "", "file":
		path := u.Path
		if path == "" {
			// "file:rel/path" is parsed as opaque
			path = u.Opaque
		}
		path = filepath.Clean(path)
		if err := os.MkdirAll(path, 0775); err != nil {
			return nil, errors.Wrap(err, location)
		}
		return NewFileSystem(path), nil
	case "s3":
		conf := &aws.Config{}
		if u.Host != "" {
			conf.Endpoint = aws.String(u.Host)
			conf.Region = aws.String("us-east-1")
			// disable SSL for local development
			if strings.Contains(u.Host, "localhost") {
				conf.DisableSSL = aws.Bool(true)
				conf.S3ForcePathStyle = aws.Bool(true)
			}
		}
		bucket, prefix := splitBucketPrefix(u.Path)
		if bucket == "" {
			return nil, errors.Wrapf(ErrBadLocation, "%s: no bucket name", location)
		}
		sess, err := session.NewSession(conf)
		if err != nil {
			return nil, errors.Wrap(err, location)
		}
		return NewS3(bucket, prefix, sess), nil
	}
	return nil, errors.Wrapf(ErrBadLocation, "%s: unknown scheme %q", location, u.Scheme)
}
