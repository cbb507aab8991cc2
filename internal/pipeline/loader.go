package pipeline

import (
	"context"
	"fmt"
	"os"

	"billscan/internal/domain"
	"billscan/internal/port"
	s3storage "billscan/internal/storage/s3"
)

// Loader reads batch inputs from the local filesystem or, for s3:// URIs,
// from object storage.
type Loader struct {
	maxBytes   int64
	newStorage func() (port.ObjectStorage, error)
	storage    port.ObjectStorage
}

// NewLoader creates a Loader. newStorage is called once, on the first object
// storage input. maxBytes <= 0 disables the size check.
func NewLoader(maxBytes int64, newStorage func() (port.ObjectStorage, error)) *Loader {
	return &Loader{maxBytes: maxBytes, newStorage: newStorage}
}

// Load reads every input in order. Empty or oversized inputs are rejected with
// domain.ErrUnsupportedDocument.
func (l *Loader) Load(ctx context.Context, inputs []string) ([]Document, error) {
	docs := make([]Document, 0, len(inputs))
	for _, in := range inputs {
		data, err := l.read(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", in, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%s: %w: empty file", in, domain.ErrUnsupportedDocument)
		}
		if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
			return nil, fmt.Errorf("%s: %w: %d bytes exceeds limit of %d", in, domain.ErrUnsupportedDocument, len(data), l.maxBytes)
		}
		docs = append(docs, Document{Name: in, Bytes: data})
	}
	return docs, nil
}

func (l *Loader) read(ctx context.Context, in string) ([]byte, error) {
	if !s3storage.IsURI(in) {
		return os.ReadFile(in)
	}
	bucket, key, err := s3storage.ParseURI(in)
	if err != nil {
		return nil, err
	}
	if l.storage == nil {
		if l.newStorage == nil {
			return nil, fmt.Errorf("%w: no object storage configured", domain.ErrProviderNotConfigured)
		}
		if l.storage, err = l.newStorage(); err != nil {
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
	}
	return l.storage.Download(ctx, bucket, key)
}
