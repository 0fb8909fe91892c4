// Package storage stores generated and uploaded case documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aldoetobex/pi-case-backend/pkg/config"
)

// Store is an artifact store addressed by object key.
type Store interface {
	// Upload writes an object and returns its public URL.
	Upload(ctx context.Context, key string, r io.Reader, contentType string, size int64) (string, error)
	// SignedURL returns a short-lived download URL.
	SignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
	// Delete removes an object. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
}

const (
	TypeSupabase = "supabase"
	TypeS3       = "s3"
	TypeLocal    = "local"
)

// New builds the backend selected by cfg.Type.
func New(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Type {
	case TypeSupabase, "":
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, errors.New("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for supabase storage")
		}
		return NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket), nil
	case TypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET is required for s3 storage")
		}
		return NewS3(ctx, cfg)
	case TypeLocal:
		return NewLocal(cfg.LocalPath, cfg.LocalBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ObjectKey builds a per-case key: case/<caseID>/<unique>_<filename>.
func ObjectKey(caseID uuid.UUID, filename string) string {
	return path.Join("case", caseID.String(), uuid.NewString()[:8]+"_"+SafeName(filename))
}

// SafeName keeps a filename readable but path- and URL-safe.
func SafeName(name string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "document"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}
