package port

import "context"

// ObjectStorage abstracts the cloud object store documents are read from.
type ObjectStorage interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}
