package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	storepkg "github.com/ivana-meshed/mmm-app-sub001/internal/store"
)

// Options configures the GCS-backed store.
type Options struct {
	// Bucket is the GCS bucket holding queue documents and ledgers. Required.
	Bucket string
	// ClientOptions are forwarded to the GCS client (credentials, endpoint
	// override for emulators).
	ClientOptions []option.ClientOption
	// Timeout bounds each Load/Save call. Zero means 30s.
	Timeout time.Duration
}

// Store implements store.Store on Google Cloud Storage. The generation is the
// GCS object generation, so conditional writes map directly onto GCS
// preconditions and no extra bookkeeping is needed.
type Store struct {
	client  *storage.Client
	bucket  *storage.BucketHandle
	timeout time.Duration
}

// Open creates a GCS client and binds it to the configured bucket.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("gcs: Options.Bucket is required")
	}
	client, err := storage.NewClient(ctx, opts.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Store{client: client, bucket: client.Bucket(opts.Bucket), timeout: timeout}, nil
}

// Load reads the object and its generation.
func (s *Store) Load(ctx context.Context, key string) ([]byte, int64, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	r, err := s.bucket.Object(key).NewReader(cctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, storepkg.GenerationCreate, storepkg.ErrNotFound
		}
		return nil, 0, fmt.Errorf("gcs: read %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("gcs: read %s: %w", key, err)
	}
	return data, r.Attrs.Generation, nil
}

// Save writes the object guarded by a GCS precondition: GenerationMatch for
// existing objects, DoesNotExist for the create sentinel. A precondition
// failure (HTTP 412) surfaces as store.ErrConflict.
func (s *Store) Save(ctx context.Context, key string, data []byte, expectedGen int64) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var conds storage.Conditions
	if expectedGen == storepkg.GenerationCreate {
		conds = storage.Conditions{DoesNotExist: true}
	} else {
		conds = storage.Conditions{GenerationMatch: expectedGen}
	}

	w := s.bucket.Object(key).If(conds).NewWriter(cctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return classifyWriteErr(key, err)
	}
	if err := w.Close(); err != nil {
		return classifyWriteErr(key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error { return s.client.Close() }

func classifyWriteErr(key string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
		return storepkg.ErrConflict
	}
	return fmt.Errorf("gcs: write %s: %w", key, err)
}
