package storage

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
)

// ErrSourceUnavailable is returned when an input cannot be reached or read.
var ErrSourceUnavailable = errors.New("source unavailable")

// Store reads inputs and publishes outputs at a URI.
type Store interface {
	// Open returns a reader over the object at uri.
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	// PutFile replaces the object at uri with the contents of localPath.
	PutFile(ctx context.Context, localPath, uri string) error
	// ReplaceDir makes the directory at uri hold exactly the files under localDir.
	ReplaceDir(ctx context.Context, localDir, uri string) error
}

// IsS3 reports whether uri names an S3 object.
func IsS3(uri string) bool {
	for _, scheme := range []string{"s3://", "s3n://", "s3a://"} {
		if strings.HasPrefix(uri, scheme) {
			return true
		}
	}
	return false
}

// Join appends path elements to a URI with forward slashes.
func Join(base string, elem ...string) string {
	out := strings.TrimRight(base, "/")
	for _, e := range elem {
		out += "/" + strings.Trim(e, "/")
	}
	return out
}

// Mux routes s3:// URIs to an S3 store and everything else to the local filesystem.
// The S3 store is created on first use.
type Mux struct {
	local Store

	once  sync.Once
	newS3 func() (Store, error)
	s3    Store
	s3Err error
}

// NewMux creates a Mux whose S3 store uses region and logs to logger.
func NewMux(region string, logger *log.Logger) *Mux {
	return &Mux{
		local: NewLocalStore(),
		newS3: func() (Store, error) {
			s, err := NewS3Store(region, logger)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// NewMuxWith creates a Mux from explicit stores.
func NewMuxWith(local, s3 Store) *Mux {
	return &Mux{local: local, newS3: func() (Store, error) { return s3, nil }}
}

func (m *Mux) route(uri string) (Store, error) {
	if !IsS3(uri) {
		return m.local, nil
	}
	m.once.Do(func() {
		m.s3, m.s3Err = m.newS3()
	})
	return m.s3, m.s3Err
}

func (m *Mux) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	s, err := m.route(uri)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, uri)
}

func (m *Mux) PutFile(ctx context.Context, localPath, uri string) error {
	s, err := m.route(uri)
	if err != nil {
		return err
	}
	return s.PutFile(ctx, localPath, uri)
}

func (m *Mux) ReplaceDir(ctx context.Context, localDir, uri string) error {
	s, err := m.route(uri)
	if err != nil {
		return err
	}
	return s.ReplaceDir(ctx, localDir, uri)
}
