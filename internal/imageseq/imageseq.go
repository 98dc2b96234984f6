// Package imageseq reads and writes video as a directory of numbered still images
package imageseq

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Decoders for supported inputs
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pkg/errors"
)

var (
	ErrNoFrames = errors.New("No image files found")
)

var supportedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// Source yields images of a directory in lexical order of file names
type Source struct {
	files []string
	next  int
}

// Open lists image files of the directory
func Open(dir string) (*Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read directory '%s'", dir)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := supportedExtensions[ext]; !ok {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrNoFrames, "directory '%s'", dir)
	}
	sort.Strings(files)
	return &Source{files: files}, nil
}

// Len returns number of frames in sequence
func (src *Source) Len() int {
	return len(src.files)
}

// Read decodes next image. Returns io.EOF after the last one.
func (src *Source) Read() (image.Image, error) {
	if src.next >= len(src.files) {
		return nil, io.EOF
	}
	path := src.files[src.next]
	src.next++
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open frame '%s'", path)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't decode frame '%s'", path)
	}
	return img, nil
}

func (src *Source) Close() error {
	return nil
}

// Sink writes frames as frame_000000.png, frame_000001.png, ...
type Sink struct {
	dir     string
	written int
	encoder png.Encoder
}

// Create makes output directory if needed
func Create(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "Can't create directory '%s'", dir)
	}
	return &Sink{
		dir:     dir,
		encoder: png.Encoder{CompressionLevel: png.BestSpeed},
	}, nil
}

// Write encodes frame as the next PNG file
func (sink *Sink) Write(frame image.Image) error {
	path := filepath.Join(sink.dir, fmt.Sprintf("frame_%06d.png", sink.written))
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Can't create '%s'", path)
	}
	if err := sink.encoder.Encode(file, frame); err != nil {
		file.Close()
		return errors.Wrapf(err, "Can't encode '%s'", path)
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "Can't close '%s'", path)
	}
	sink.written++
	return nil
}

// Written returns number of frames written so far
func (sink *Sink) Written() int {
	return sink.written
}

func (sink *Sink) Close() error {
	return nil
}
