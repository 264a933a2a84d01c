// Package export hands downloaded reports to a destination: a local
// directory or a Cloud Storage bucket.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Sink persists one exported file and reports where it went.
type Sink interface {
	Save(ctx context.Context, filename string, r io.Reader) (location string, err error)
}

var errBadFilename = errors.New("filename must be a plain file name")

func checkFilename(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return errBadFilename
	}
	return nil
}

// FileSink writes into a local directory. A file appears only once it is
// complete.
type FileSink struct {
	Dir string
}

func (s FileSink) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := checkFilename(filename); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, "."+filename+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", filename, err)
	}
	dst := filepath.Join(s.Dir, filename)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("move %s into place: %w", filename, err)
	}
	return dst, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// GCSSink uploads into a bucket, under an optional prefix.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSink opens a storage client. Without options it uses Application
// Default Credentials.
func NewGCSSink(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSSink, error) {
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSSink{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *GCSSink) objectName(filename string) string {
	if s.prefix == "" {
		return filename
	}
	return path.Join(s.prefix, filename)
}

func (s *GCSSink) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := checkFilename(filename); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	name := s.objectName(filename)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload %s: %w", name, err)
	}
	return "gs://" + s.bucket + "/" + name, nil
}

func (s *GCSSink) Close() error { return s.client.Close() }
