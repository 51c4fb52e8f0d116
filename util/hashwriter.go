package util

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// A HashWriter wraps an io.Writer and records the MD5 and SHA256 hashes and
// the length of everything written through it.
type HashWriter struct {
	w      io.Writer
	md5    hash.Hash
	sha256 hash.Hash
	n      int64
}

// NewHashWriter returns a HashWriter wrapping w. If w is nil the data is
// only hashed.
func NewHashWriter(w io.Writer) *HashWriter {
	return &HashWriter{
		w:      w,
		md5:    md5.New(),
		sha256: sha256.New(),
	}
}

// NewMD5Writer returns a HashWriter wrapping w which only computes an MD5 hash.
func NewMD5Writer(w io.Writer) *HashWriter {
	return &HashWriter{
		w:   w,
		md5: md5.New(),
	}
}

func (hw *HashWriter) Write(p []byte) (int, error) {
	n := len(p)
	var err error
	if hw.w != nil {
		n, err = hw.w.Write(p)
	}
	// only hash what made it through
	hw.md5.Write(p[:n])
	if hw.sha256 != nil {
		hw.sha256.Write(p[:n])
	}
	hw.n += int64(n)
	return n, err
}

// Size is the number of bytes written so far.
func (hw *HashWriter) Size() int64 {
	return hw.n
}

// MD5 returns the hex encoded MD5 hash of the bytes written so far.
func (hw *HashWriter) MD5() string {
	return hex.EncodeToString(hw.md5.Sum(nil))
}

// SHA256 returns the hex encoded SHA256 hash of the bytes written so far, or
// an empty string if this writer does not compute one.
func (hw *HashWriter) SHA256() string {
	if hw.sha256 == nil {
		return ""
	}
	return hex.EncodeToString(hw.sha256.Sum(nil))
}
