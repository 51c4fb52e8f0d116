package store

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestSplitBucketPrefix(t *testing.T) {
	var table = []struct {
		location string
		bucket   string
		prefix   string
	}{
		{"", "", ""},
		{"/", "", ""},
		{"rel/path", "rel", "path/"},
		{"/abs/path/", "abs", "path/"},
		{"/bucket", "bucket", ""},
		{"/bucket/prefix/", "bucket", "prefix/"},
		{"/bucket/prefix/more", "bucket", "prefix/more/"},
	}
	for _, row := range table {
		bucket, prefix := splitBucketPrefix(row.location)
		if bucket != row.bucket || prefix != row.prefix {
			t.Errorf("%q: Received (%q, %q), expected (%q, %q)",
				row.location, bucket, prefix, row.bucket, row.prefix)
		}
	}
}

func TestParseLocation(t *testing.T) {
	dir, err := ioutil.TempDir("", "location")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	const (
		typeMemory = iota
		typeFileSystem
		typeS3
		typeError
	)
	var table = []struct {
		location string
		typ      int
		bucket   string
		prefix   string
	}{
		{"", typeMemory, "", ""},
		{filepath.Join(dir, "plain"), typeFileSystem, "", ""},
		{"file:" + filepath.Join(dir, "url"), typeFileSystem, "", ""},
		{"s3:/bucket", typeS3, "bucket", ""},
		{"s3:///bucket/prefix", typeS3, "bucket", "prefix/"},
		{"s3://localhost:9000/bucket/prefix/", typeS3, "bucket", "prefix/"},
		{"s3://localhost:9000/", typeError, "", ""},
		{"ftp://example.org/x", typeError, "", ""},
	}
	for _, row := range table {
		result, err := ParseLocation(row.location)
		if row.typ == typeError {
			if errors.Cause(err) != ErrBadLocation {
				t.Errorf("%s: Received %v, expected %v", row.location, err, ErrBadLocation)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: Received %s", row.location, err)
			continue
		}
		switch x := result.(type) {
		case *Memory:
			if row.typ != typeMemory {
				t.Errorf("%s: unexpected received %#v", row.location, result)
			}
		case *FileSystem:
			if row.typ != typeFileSystem {
				t.Errorf("%s: unexpected received %#v", row.location, result)
			}
			if fi, err := os.Stat(x.Root()); err != nil || !fi.IsDir() {
				t.Errorf("%s: directory was not created", row.location)
			}
		case *S3:
			if row.typ != typeS3 {
				t.Errorf("%s: unexpected received %#v", row.location, result)
			}
			if x.Bucket != row.bucket || x.Prefix != row.prefix {
				t.Errorf("%s: Received (%q, %q), expected (%q, %q)",
					row.location, x.Bucket, x.Prefix, row.bucket, row.prefix)
			}
		}
	}
}

func TestCheckKey(t *testing.T) {
	var table = []struct {
		key string
		err error
	}{
		{"OBJ/a:1-OBJ.jpg", nil},
		{"file.txt", nil},
		{"", ErrBadKey},
		{"a/../b", ErrBadKey},
		{"a\\b", ErrBadKey},
		{"a b", ErrKeyContainsWhiteSpace},
		{"a\x00b", ErrKeyContainsControlChar},
		{"\xff", ErrBadKey},
	}
	for _, row := range table {
		if err := CheckKey(row.key); errors.Cause(err) != row.err {
			t.Errorf("%q: Received %v, expected %v", row.key, err, row.err)
		}
	}
}
