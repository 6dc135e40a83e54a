package convert

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// bundle writes a multi-file job's artifacts into one zip archive, streaming
// each member directly so no per-file artifact is buffered in memory.
type bundle struct {
	f  *os.File
	zw *zip.Writer
}

func createBundle(path string) (*bundle, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	return &bundle{f: f, zw: zip.NewWriter(f)}, nil
}

// Entry opens the next archive member. The previous member is finalized by
// the next Entry or by Close; members must be written strictly in sequence.
func (b *bundle) Entry(name string) (io.Writer, error) {
	w, err := b.zw.Create(name)
	if err != nil {
		return nil, fmt.Errorf("archive member %s: %w", name, err)
	}
	return w, nil
}

func (b *bundle) Close() error {
	if err := b.zw.Close(); err != nil {
		_ = b.f.Close()
		return fmt.Errorf("close archive: %w", err)
	}
	if err := b.f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}
