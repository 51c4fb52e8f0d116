package foxml

import (
	"os"
	"path/filepath"
)

func removeAll(dir string) {
	os.RemoveAll(dir)
}

func basename(p string) string {
	return filepath.Base(p)
}
