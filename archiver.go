package feedloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Archiver copies local artifacts to remote storage and returns their remote locations.
type Archiver interface {
	Archive(ctx context.Context, a Artifacts) (Artifacts, error)
}

// GCSArchiver uploads artifacts into a Cloud Storage bucket under Prefix.
type GCSArchiver struct {
	Bucket string
	Prefix string

	storage *storage.Client
}

// NewGCSArchiver builds an archiver for bucket. A non-empty endpoint targets an
// emulator without authentication.
func NewGCSArchiver(ctx context.Context, bucket, prefix, endpoint string) (*GCSArchiver, error) {
	s, err := storage.NewClient(ctx, clientOptions(endpoint)...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build storage client for %s: %w", bucket, err)
	}

	return &GCSArchiver{Bucket: bucket, Prefix: prefix, storage: s}, nil
}

// Archive uploads both artifacts concurrently. Either failure fails the archive.
func (a *GCSArchiver) Archive(ctx context.Context, arts Artifacts) (Artifacts, error) {
	remote := Artifacts{
		Raw:     objectURI(a.Bucket, a.objectName(arts.Raw)),
		Tabular: objectURI(a.Bucket, a.objectName(arts.Tabular)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.upload(ctx, arts.Raw, "application/json")
	})
	g.Go(func() error {
		return a.upload(ctx, arts.Tabular, "text/csv")
	})

	if err := g.Wait(); err != nil {
		return Artifacts{}, err
	}

	return remote, nil
}

func (a *GCSArchiver) upload(ctx context.Context, local, contentType string) error {
	l := log.Ctx(ctx)
	name := a.objectName(local)

	f, err := os.Open(local)
	if err != nil {
		return xerrors.Errorf("failed to open %s: %w", local, err)
	}
	defer f.Close()

	w := a.storage.Bucket(a.Bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	n, err := io.Copy(w, f)
	if err != nil {
		w.Close()
		return xerrors.Errorf("failed to upload %s: %w", objectURI(a.Bucket, name), err)
	}
	if err := w.Close(); err != nil {
		return xerrors.Errorf("failed to finalize %s: %w", objectURI(a.Bucket, name), err)
	}

	l.Info().Str("object", objectURI(a.Bucket, name)).Int64("bytes", n).Msg("artifact archived")

	return nil
}

func (a *GCSArchiver) objectName(local string) string {
	return path.Join(a.Prefix, filepath.Base(local))
}

// Close releases the storage client.
func (a *GCSArchiver) Close() error {
	return a.storage.Close()
}

// objectURI returns full path of storage object beginning with gs://.
func objectURI(bucket, name string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, name)
}
