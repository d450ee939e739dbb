package hasher

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestContentHashLength(t *testing.T) {
	data := []byte("towebp")
	if got := len(ContentHash(data, NameLen)); got != 16 {
		t.Errorf("len: got %d, want 16", got)
	}
	if got := len(ContentHash(data, 8)); got != 8 {
		t.Errorf("len: got %d, want 8", got)
	}
	if got := len(ContentHash(data, 0)); got != 16 {
		t.Errorf("len: got %d, want 16", got)
	}
}

func TestHashesAgree(t *testing.T) {
	data := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 4096)
	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	want := ContentHash(data, NameLen)
	fromReader, err := ContentHashReader(bytes.NewReader(data), NameLen)
	if err != nil {
		t.Fatal(err)
	}
	fromFile, err := FileHash(path, NameLen)
	if err != nil {
		t.Fatal(err)
	}
	if fromReader != want || fromFile != want {
		t.Errorf("hashes differ: bytes %s, reader %s, file %s", want, fromReader, fromFile)
	}
	if ContentHash([]byte("other"), NameLen) == want {
		t.Error("different content hashed equal")
	}
}
