package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Supabase stores artifacts in a Supabase Storage bucket over REST.
// The key is sent as both apikey and Bearer token, which covers legacy
// service_role JWTs and sb_secret_ keys alike.
type Supabase struct {
	baseURL string // https://<project>.supabase.co
	apiKey  string
	bucket  string
	client  *http.Client
}

var errNotFound = errors.New("object not found")

func NewSupabase(baseURL, apiKey, bucket string) *Supabase {
	return &Supabase{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// endpoint builds /storage/v1/object[/<kind>]/<bucket>/<key>.
func (s *Supabase) endpoint(kind, key string) string {
	p := s.baseURL + "/storage/v1/object"
	if kind != "" {
		p += "/" + kind
	}
	return p + "/" + s.bucket + "/" + strings.TrimLeft(key, "/")
}

// PublicURL is the object URL when the bucket is public.
func (s *Supabase) PublicURL(key string) string { return s.endpoint("public", key) }

// call sends one request and returns the response body. Non-2xx answers
// become errors carrying the body; 404 wraps errNotFound.
func (s *Supabase) call(ctx context.Context, op, method, url, contentType string, body io.Reader, size int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if size > 0 {
		req.ContentLength = size
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase %s: %w", op, err)
	}
	defer res.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("supabase %s: %w", op, errNotFound)
	case res.StatusCode >= 300:
		return nil, fmt.Errorf("supabase %s error: %s | %s", op, res.Status, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func (s *Supabase) Upload(ctx context.Context, key string, r io.Reader, contentType string, size int64) (string, error) {
	if _, err := s.call(ctx, "upload", http.MethodPost, s.endpoint("", key), contentType, r, size); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

// SignedURL asks Storage for a time-limited link. The API answers with a
// path relative to /storage/v1.
func (s *Supabase) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	in, _ := json.Marshal(map[string]int{"expiresIn": int(expires.Seconds())})
	data, err := s.call(ctx, "sign", http.MethodPost, s.endpoint("sign", key), "application/json", bytes.NewReader(in), 0)
	if err != nil {
		return "", err
	}

	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("supabase sign: %w", err)
	}
	if out.SignedURL == "" {
		return "", errors.New("supabase sign: empty signedURL in response")
	}
	return s.baseURL + "/storage/v1" + out.SignedURL, nil
}

// Delete removes an object. A missing object counts as deleted.
func (s *Supabase) Delete(ctx context.Context, key string) error {
	_, err := s.call(ctx, "delete", http.MethodDelete, s.endpoint("", key), "", nil, 0)
	if errors.Is(err, errNotFound) {
		return nil
	}
	return err
}
