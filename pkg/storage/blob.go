package storage

import (
	"context"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

// BlobFileStore implements FileStore on gocloud.dev/blob, so uploads can
// land on local disk, in memory, or any bucket URL the embedder registers
// a driver for
type BlobFileStore struct {
	bucket *blob.Bucket
	prefix string
}

var _ FileStore = (*BlobFileStore)(nil)

// NewBlobFileStore opens the bucket at bucketURL. All keys are stored
// under prefix
func NewBlobFileStore(
	ctx context.Context, bucketURL, prefix string,
) (*BlobFileStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &BlobFileStore{bucket: bucket, prefix: prefix}, nil
}

// Put streams r into the bucket under key and returns the byte count
func (b *BlobFileStore) Put(
	ctx context.Context, key string, r io.Reader,
) (int64, error) {
	w, err := b.bucket.NewWriter(ctx, b.keyFor(key), nil)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, err
	}
	return n, w.Close()
}

// Open returns a reader over the payload stored under key
func (b *BlobFileStore) Open(
	ctx context.Context, key string,
) (io.ReadCloser, error) {
	r, err := b.bucket.NewReader(ctx, b.keyFor(key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return r, nil
}

// Delete removes the payload stored under key. Deleting an absent key is
// not an error
func (b *BlobFileStore) Delete(ctx context.Context, key string) error {
	err := b.bucket.Delete(ctx, b.keyFor(key))
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

// Close releases the underlying bucket
func (b *BlobFileStore) Close() error {
	return b.bucket.Close()
}

func (b *BlobFileStore) keyFor(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + "/" + key
}
