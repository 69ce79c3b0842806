package s3blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "https://r2.example.com", endpointURL("https://r2.example.com", false))
	assert.Equal(t, "http://minio:9000", endpointURL("minio:9000", false))
	assert.Equal(t, "https://minio.internal", endpointURL("minio.internal", true))
}

func TestObjectKeyPrefixing(t *testing.T) {
	unprefixed := &Client{bucket: "b"}
	assert.Equal(t, "archive/lots/x.jsonl", unprefixed.ObjectKey("archive/lots/x.jsonl"))

	prefixed := &Client{bucket: "b", prefix: "base-jungle"}
	assert.Equal(t, "base-jungle/archive/lots/x.jsonl", prefixed.ObjectKey("/archive/lots/x.jsonl"))
}
