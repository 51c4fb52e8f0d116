package util

import (
	"bytes"
	"testing"
)

func TestHashWriter(t *testing.T) {
	const input = "hello1 hello2 hello3 hello4 hello5abcdefghijklmnopqrstuvwxyz0123456789"
	const goalMD5 = "0101fc798d94a730b0f0bf1bd2cc1959"
	const goalSHA256 = "fef15edd82b33633582c723562d192fec2d2003df12d4aeac89df17c279a1658"

	var table = []struct {
		name   string
		hw     func(*bytes.Buffer) *HashWriter
		sha256 string
		copied bool
	}{
		{"full", func(b *bytes.Buffer) *HashWriter { return NewHashWriter(b) }, goalSHA256, true},
		{"md5", func(b *bytes.Buffer) *HashWriter { return NewMD5Writer(b) }, "", true},
		{"plain", func(b *bytes.Buffer) *HashWriter { return NewHashWriter(nil) }, goalSHA256, false},
	}
	for _, row := range table {
		var buf bytes.Buffer
		hw := row.hw(&buf)
		// write in two pieces
		hw.Write([]byte(input[:10]))
		hw.Write([]byte(input[10:]))
		if hw.MD5() != goalMD5 {
			t.Errorf("%s: Received %s, expected %s", row.name, hw.MD5(), goalMD5)
		}
		if hw.SHA256() != row.sha256 {
			t.Errorf("%s: Received %s, expected %s", row.name, hw.SHA256(), row.sha256)
		}
		if hw.Size() != int64(len(input)) {
			t.Errorf("%s: Received %d, expected %d", row.name, hw.Size(), len(input))
		}
		if row.copied != (buf.String() == input) {
			t.Errorf("%s: Received buffer %q", row.name, buf.String())
		}
	}
}
