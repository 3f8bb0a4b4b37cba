package formats

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
)

var gzipMagic = []byte{0x1f, 0x8b}

// maybeGunzip decompresses data if it starts with the gzip magic.
func maybeGunzip(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing gzip stream: %w", err)
	}
	return out, nil
}

// IsGzipLevel reports whether level enables compression.
func IsGzipLevel(level int) bool {
	return level >= gzip.BestSpeed && level <= gzip.BestCompression
}

// fileWriter closes the gzip stream before the file.
type fileWriter struct {
	io.Writer
	gz   *gzip.Writer
	file *os.File
}

func (w *fileWriter) Close() error {
	var err error
	if w.gz != nil {
		err = multierr.Append(err, w.gz.Close())
	}
	return multierr.Append(err, w.file.Close())
}

// Create creates (or truncates) path for writing. A gzip level between 1
// and 9 compresses the output, anything else writes it as is.
func Create(path string, gzipLevel int) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !IsGzipLevel(gzipLevel) {
		return &fileWriter{Writer: f, file: f}, nil
	}

	gz, err := gzip.NewWriterLevel(f, gzipLevel)
	if err != nil {
		return nil, multierr.Append(err, f.Close())
	}
	return &fileWriter{Writer: gz, gz: gz, file: f}, nil
}

// WriteFile creates path and hands it to write, closing it afterwards.
func WriteFile(path string, gzipLevel int, write func(w io.Writer) error) (err error) {
	w, err := Create(path, gzipLevel)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, w.Close())
	}()
	return write(w)
}
