package client

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/francoflex/francoflex_service/internal/metrics"
)

// StorageClient wraps the Google Cloud Storage client.
type StorageClient struct {
	client     *storage.Client
	bucketName string
	timeout    time.Duration
}

// NewStorageClient creates a new storage client. credentialsFile may be empty
// to use application default credentials.
func NewStorageClient(ctx context.Context, bucketName, credentialsFile string, timeout time.Duration) (*StorageClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &StorageClient{
		client:     client,
		bucketName: bucketName,
		timeout:    timeout,
	}, nil
}

// Close closes the client.
func (c *StorageClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Upload writes data to the bucket and returns its public URL.
func (c *StorageClient) Upload(ctx context.Context, objectName string, data []byte, contentType string) (url string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordProviderCall("gcs", "put_object", err == nil, time.Since(start))
	}()

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	w := c.client.Bucket(c.bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectName), nil
}
