package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// startTestStore connects to an S3-compatible endpoint from env (e.g. a
// local MinIO) and skips if one isn't configured for this environment.
func startTestStore(t *testing.T) *Store {
	t.Helper()
	endpoint := os.Getenv("TEST_S3_ENDPOINT")
	bucket := os.Getenv("TEST_S3_BUCKET")
	if endpoint == "" || bucket == "" {
		t.Skip("TEST_S3_ENDPOINT / TEST_S3_BUCKET not set, skipping object-store integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := New(ctx, Config{
		Region:          "us-east-1",
		Bucket:          bucket,
		Endpoint:        endpoint,
		ForcePathStyle:  true,
		AccessKeyID:     os.Getenv("TEST_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("TEST_S3_SECRET_ACCESS_KEY"),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.HeadBucket(ctx); err != nil {
		t.Skipf("bucket not reachable: %v", err)
	}
	return s
}

func TestSaveOpenExists(t *testing.T) {
	s := startTestStore(t)
	ctx := context.Background()
	key := "native-audio/alice/seg_test.wav"

	if s.Exists(ctx, key) {
		t.Fatalf("key %q should not exist before Save", key)
	}

	if err := s.Save(ctx, key, []byte("RIFF....WAVEfmt "), "audio/wav"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	defer s.Delete(ctx, key)

	if !s.Exists(ctx, key) {
		t.Fatalf("key %q should exist after Save", key)
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rc.Close()

	url, err := s.PresignURL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("PresignURL: %v", err)
	}
	if url == "" {
		t.Error("expected non-empty presigned URL")
	}
}

func TestListRecentKeys(t *testing.T) {
	s := startTestStore(t)
	ctx := context.Background()
	key := "native-audio/bob/seg_recent.wav"

	if err := s.Save(ctx, key, []byte("data"), "audio/wav"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	defer s.Delete(ctx, key)

	keys, err := s.ListRecentKeys(ctx, "native-audio/bob/", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListRecentKeys: %v", err)
	}
	found := false
	for _, k := range keys {
		if k == key {
			found = true
		}
	}
	if !found {
		t.Errorf("ListRecentKeys did not include %q: %v", key, keys)
	}
}
