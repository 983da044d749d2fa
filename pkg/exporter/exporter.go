// Package exporter encodes a composited page raster and persists it to temporary storage
// under a name derived from the page URL.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"time"
)

// ErrFileSystem matches every storage, create or write failure raised during export.
var ErrFileSystem = errors.New("file system failure")

// FileSystemError describes which export stage failed.
type FileSystemError struct {
	Op  string
	Err error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("file system failure during %s: %v", e.Op, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrFileSystem) match any FileSystemError.
func (e *FileSystemError) Is(target error) bool {
	return target == ErrFileSystem
}

// FileHandle references an exported file.
type FileHandle struct {
	Name     string
	Path     string
	URL      string
	Size     int64
	Format   Format
	MIMEType string
}

// Options configure an Exporter.
type Options struct {
	// Dir is the storage directory; files land in <Dir>/temporary
	Dir string

	// Format defaults to PNG
	Format Format

	// Clock defaults to time.Now
	Clock func() time.Time
}

// Exporter writes rasters to temporary storage.
type Exporter struct {
	storage *TemporaryStorage
	format  Format
	clock   func() time.Time
}

// New validates opts and returns an Exporter.
func New(opts Options) (*Exporter, error) {
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}

	storage, err := NewTemporaryStorage(opts.Dir)
	if err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Exporter{
		storage: storage,
		format:  format,
		clock:   clock,
	}, nil
}

// Dir returns the directory exported files are written to.
func (e *Exporter) Dir() string {
	return e.storage.Root()
}

// Export encodes raster and writes it under a name derived from sourceURL.
func (e *Exporter) Export(ctx context.Context, raster image.Image, sourceURL string) (*FileHandle, error) {
	if raster == nil || raster.Bounds().Empty() {
		return nil, fmt.Errorf("nothing to export: raster is empty")
	}

	payload, err := Encode(raster, e.format)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := FileName(sourceURL, e.clock(), e.format)

	fs, err := e.storage.RequestFileSystem(int64(len(payload)) + SlackBytes)
	if err != nil {
		return nil, &FileSystemError{Op: "request", Err: err}
	}

	writer, err := fs.Create(name)
	if err != nil {
		return nil, &FileSystemError{Op: "create", Err: err}
	}

	if _, err := writer.Write(payload); err != nil {
		writer.Close()
		os.Remove(writer.Path())
		return nil, &FileSystemError{Op: "write", Err: err}
	}

	if err := writer.Close(); err != nil {
		os.Remove(writer.Path())
		return nil, &FileSystemError{Op: "write", Err: err}
	}

	return &FileHandle{
		Name:     name,
		Path:     writer.Path(),
		URL:      FileURL(writer.Path()),
		Size:     int64(len(payload)),
		Format:   e.format,
		MIMEType: e.format.MIMEType(),
	}, nil
}
