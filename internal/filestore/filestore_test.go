package filestore

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	putFails int
	putCalls int
	getErr   error
	delErr   error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.putFails > 0 {
		m.putFails--
		return nil, errors.New("connection reset")
	}
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	if input.ContentType != nil {
		m.types[*input.Key] = *input.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(string(data))),
		ContentType:   aws.String(m.types[*input.Key]),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func testStore(mock *mockS3Client) *Store {
	return &Store{client: mock, bucket: "test"}
}

func TestConfigured(t *testing.T) {
	s := New(Config{})
	if s.Configured() {
		t.Error("expected Configured() = false without credentials")
	}

	s2 := New(Config{Bucket: "docs", AccessKey: "key", SecretKey: "secret", Region: "auto"})
	if !s2.Configured() {
		t.Error("expected Configured() = true with credentials")
	}
}

func TestUploadDownloadDelete(t *testing.T) {
	mock := newMockS3()
	s := testStore(mock)
	ctx := context.Background()

	key, err := s.Upload(ctx, 7, "lease.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(key, "7/") {
		t.Errorf("key = %q, want household prefix 7/", key)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Errorf("key = %q, want .pdf suffix", key)
	}

	obj, err := s.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer obj.Body.Close()

	data, _ := io.ReadAll(obj.Body)
	if string(data) != "pdf-bytes" {
		t.Errorf("body = %q, want %q", data, "pdf-bytes")
	}
	if obj.ContentType != "application/pdf" {
		t.Errorf("content type = %q, want application/pdf", obj.ContentType)
	}
	if obj.Size != int64(len("pdf-bytes")) {
		t.Errorf("size = %d, want %d", obj.Size, len("pdf-bytes"))
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Download(ctx, key); err == nil {
		t.Fatal("expected download error after delete")
	}
}

func TestUploadUniqueKeys(t *testing.T) {
	mock := newMockS3()
	s := testStore(mock)
	ctx := context.Background()

	k1, err := s.Upload(ctx, 1, "receipt.jpg", "image/jpeg", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("upload 1: %v", err)
	}
	k2, err := s.Upload(ctx, 1, "receipt.jpg", "image/jpeg", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("upload 2: %v", err)
	}
	if k1 == k2 {
		t.Errorf("expected distinct keys for same filename, got %q twice", k1)
	}
}

func TestUploadRetriesTransientFailure(t *testing.T) {
	mock := newMockS3()
	mock.putFails = 2
	s := testStore(mock)

	key, err := s.Upload(context.Background(), 1, "note.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if mock.putCalls != 3 {
		t.Errorf("put calls = %d, want 3", mock.putCalls)
	}
	if string(mock.objects[key]) != "hello" {
		t.Errorf("stored body = %q, want %q", mock.objects[key], "hello")
	}
}

func TestUploadGivesUpAfterRetries(t *testing.T) {
	mock := newMockS3()
	mock.putFails = 10
	s := testStore(mock)

	_, err := s.Upload(context.Background(), 1, "note.txt", "text/plain", strings.NewReader("hello"))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestUnconfiguredStoreErrors(t *testing.T) {
	s := New(Config{})
	ctx := context.Background()

	if _, err := s.Upload(ctx, 1, "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Error("expected upload error on unconfigured store")
	}
	if _, err := s.Download(ctx, "1/a"); err == nil {
		t.Error("expected download error on unconfigured store")
	}
	if err := s.Delete(ctx, "1/a"); err == nil {
		t.Error("expected delete error on unconfigured store")
	}
}
