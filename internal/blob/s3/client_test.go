package s3blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "markets.csv", objectKey("", "markets.csv"))
	assert.Equal(t, "polyscreen/markets.csv", objectKey("polyscreen/", "markets.csv"))
	assert.Equal(t, "a/b/markets.csv", objectKey("/a/b/", "/markets.csv"))
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://e2.example.com", normaliseEndpoint("e2.example.com", true))
	assert.Equal(t, "http://e2.example.com", normaliseEndpoint("e2.example.com", false))
	assert.Equal(t, "http://already", normaliseEndpoint("http://already", true))
}

func TestNew_RequiresBucketAndRegion(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	require.Error(t, err)
	_, err = New(context.Background(), ClientConfig{Bucket: "b"})
	require.Error(t, err)
}
