package catalog

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const fileMode = 0o644

var tracer = otel.Tracer("ProductCatalog/internal/catalog")

// FileStore keeps the catalog in a single JSON file that is rewritten in full
// on every save. It does not order concurrent saves; the Manager calls Save
// under its write lock. Across processes the last rename wins.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) ([]Product, error) {
	_, span := tracer.Start(ctx, "catalog.FileStore.Load",
		trace.WithAttributes(attribute.String("catalog.file", s.path)))
	defer span.End()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, failSpan(span, &StorageError{Op: opRead, Path: s.path, Err: err})
	}

	products, err := decodeProducts(data)
	if err != nil {
		return nil, failSpan(span, &StorageError{Op: opRead, Path: s.path, Err: errors.Wrap(err, "decode")})
	}

	span.SetAttributes(attribute.Int("catalog.products", len(products)))
	return products, nil
}

func (s *FileStore) Save(ctx context.Context, products []Product) error {
	_, span := tracer.Start(ctx, "catalog.FileStore.Save",
		trace.WithAttributes(
			attribute.String("catalog.file", s.path),
			attribute.Int("catalog.products", len(products)),
		))
	defer span.End()

	data := encodeProducts(products)

	if err := replaceFile(s.path, data); err != nil {
		return failSpan(span, &StorageError{Op: opWrite, Path: s.path, Err: err})
	}
	return nil
}

// replaceFile writes data to a temp file next to path and renames it over
// path, so readers see either the old or the new document.
func replaceFile(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp")
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write temp")
	}
	if err = f.Chmod(fileMode); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "chmod temp")
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "sync temp")
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "close temp")
	}
	if err = os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "rename")
	}
	return nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
