//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupMinIO starts a MinIO testcontainer and returns an S3Store configured to use it
func setupMinIO(t *testing.T) *S3Store {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start MinIO container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: Failed to terminate MinIO container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	store, err := NewS3Store(ctx, Config{
		S3Endpoint:     "http://" + host + ":" + port.Port(),
		S3AccessKey:    "minioadmin",
		S3SecretKey:    "minioadmin",
		S3Bucket:       "analytics",
		S3Region:       "us-east-1",
		S3UsePathStyle: true,
		S3CreateBucket: true,
	})
	require.NoError(t, err, "Failed to create S3 store")
	return store
}

func TestS3Store_Integration(t *testing.T) {
	store := setupMinIO(t)
	ctx := context.Background()

	require.NoError(t, store.HealthCheck(ctx))

	_, err := store.Get(ctx, "analytics/metrics.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = store.LastModified(ctx, "analytics/metrics.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	before := time.Now().Add(-time.Minute)
	require.NoError(t, store.Put(ctx, "analytics/metrics.json", []byte(`{"usage":{}}`), "application/json"))

	obj, err := store.Get(ctx, "analytics/metrics.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"usage":{}}`, string(obj.Body))
	assert.Equal(t, "application/json", obj.ContentType)
	assert.True(t, obj.LastModified.After(before))

	modified, err := store.LastModified(ctx, "analytics/metrics.json")
	require.NoError(t, err)
	assert.WithinDuration(t, obj.LastModified, modified, time.Second)
}
