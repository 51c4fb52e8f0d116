package store

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

// A S3 store represents a store that is kept on AWS S3 storage, or any
// service with the same API such as Minio.
// Do not change Bucket or Prefix concurrently with calls using the structure.
type S3 struct {
	svc      *s3.S3
	uploader *s3manager.Uploader
	Bucket   string
	Prefix   string
}

var _ Store = &S3{}

// NewS3 creates a new S3 store. It will use the given bucket and will prepend
// prefix to all keys. This is to allow for a bucket to be used for more than
// one export. For example if prefix were "batch1/" then an Open("hello")
// would look for the key "batch1/hello" in the bucket. The authorization
// method and credentials in the session are used for all accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	svc := s3.New(awsSession)
	return &S3{
		Bucket:   bucket,
		Prefix:   prefix,
		svc:      svc,
		uploader: s3manager.NewUploaderWithClient(svc),
	}
}

func (s *S3) capture(err error, op, key string) {
	log.Println("S3", op, s.Bucket, s.Prefix+key, err)
	raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Key": key, "Op": op})
}

// List returns a list of all the keys in this store. It will only return ones
// that satisfy the store's Prefix, so it is safe to use this on a bucket
// containing other items.
func (s *S3) List() <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		err := s.list("", func(key string) { out <- key })
		if err != nil {
			s.capture(err, "List", "")
		}
	}()
	return out
}

func (s *S3) list(prefix string, f func(key string)) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix + prefix),
	}
	return s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, item := range page.Contents {
				f(strings.TrimPrefix(*item.Key, s.Prefix))
			}
			return !lastpage
		})
}

// ListPrefix returns the keys in this store that have the given prefix.
// The argument prefix is added to the store's Prefix.
func (s *S3) ListPrefix(prefix string) ([]string, error) {
	var result []string
	err := s.list(prefix, func(key string) { result = append(result, key) })
	if err != nil {
		s.capture(err, "ListPrefix", prefix)
	}
	return result, err
}

// Open returns a ReadAtCloser to get the content for the given key. Each
// ReadAt is a ranged GET, so callers should read in large pieces.
func (s *S3) Open(key string) (ReadAtCloser, int64, error) {
	size, err := s.stat(key)
	if err != nil {
		return nil, 0, err
	}
	result := &s3ReadAtCloser{
		svc:    s.svc,
		bucket: s.Bucket,
		key:    s.Prefix + key,
		size:   size,
	}
	return result, size, nil
}

// stat does a HEAD request for key and returns its size.
func (s *S3) stat(key string) (int64, error) {
	info, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, errors.Wrap(ErrNotExist, key)
		}
		return 0, err
	}
	return aws.Int64Value(info.ContentLength), nil
}

func isNotFound(err error) bool {
	e, ok := err.(awserr.RequestFailure)
	return ok && e.StatusCode() == http.StatusNotFound
}

// Create returns a WriteCloser to upload content to the given key. The data
// is streamed to S3 by an s3manager.Uploader, which switches to a multipart
// upload for large items. The object only appears once Close returns
// without error.
func (s *S3) Create(key string) (io.WriteCloser, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	_, err := s.stat(key)
	if err == nil {
		return nil, errors.Wrap(ErrKeyExists, key)
	} else if errors.Cause(err) != ErrNotExist {
		return nil, err
	}
	r, w := io.Pipe()
	wc := &s3WriteCloser{w: w, done: make(chan error, 1)}
	go func() {
		_, err := s.uploader.Upload(&s3manager.UploadInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(s.Prefix + key),
			Body:   r,
		})
		if err != nil {
			s.capture(err, "Upload", key)
		}
		// unblock any writer if the upload stopped early
		r.CloseWithError(err)
		wc.done <- err
	}()
	return wc, nil
}

// Delete will remove the given key from the store. The store's Prefix is
// prepended first. It is not an error to delete something that doesn't exist.
func (s *S3) Delete(key string) error {
	_, err := s.svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil && !isNotFound(err) {
		s.capture(err, "Delete", key)
		return err
	}
	return nil
}

// s3WriteCloser feeds a pipe read by the uploading goroutine.
type s3WriteCloser struct {
	w    *io.PipeWriter
	done chan error
}

func (wc *s3WriteCloser) Write(p []byte) (int, error) {
	return wc.w.Write(p)
}

// Close waits for the upload to finish and returns its error.
func (wc *s3WriteCloser) Close() error {
	wc.w.Close()
	return <-wc.done
}

// s3ReadAtCloser adapts ranged GET requests to the ReadAt interface.
type s3ReadAtCloser struct {
	svc    *s3.S3
	bucket string
	key    string
	size   int64
}

// ReadAt implements the io.ReaderAt interface.
func (rac *s3ReadAtCloser) ReadAt(p []byte, offset int64) (int, error) {
	if offset >= rac.size {
		return 0, io.EOF
	}
	end := offset + int64(len(p))
	if end > rac.size {
		end = rac.size
	}
	if end == offset {
		return 0, nil
	}
	output, err := rac.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rac.bucket),
		Key:    aws.String(rac.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, end-1)),
	})
	if err != nil {
		return 0, err
	}
	defer output.Body.Close()
	n, err := io.ReadFull(output.Body, p[:end-offset])
	if err == nil && end == rac.size && int64(len(p)) > end-offset {
		err = io.EOF
	}
	return n, err
}

// Close does nothing since no connection is held between reads.
func (rac *s3ReadAtCloser) Close() error {
	return nil
}
