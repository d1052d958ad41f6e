package testsupport

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"bindery/internal/pack"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// MustMaterializePackage writes a minimal valid package archive to dest and
// returns dest. The package carries one attachment so submission paths see a
// realistic artifact.
func MustMaterializePackage(t testing.TB, dest string) string {
	t.Helper()

	builder := pack.NewBuilder("Fixture Item")
	builder.Metadata().Set("title", "Fixture Item")
	att := pack.NewAttachment(readCloser("fixture bytes"), "fixture.txt")
	builder.AddAttachment(att)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", dest, err)
	}
	if err := builder.Materialize(dest); err != nil {
		t.Fatalf("materialize package: %v", err)
	}
	return dest
}

func readCloser(content string) io.ReadCloser {
	return io.NopCloser(bytes.NewReader([]byte(content)))
}
