package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// uploadPartSize is the part size for multipart uploads. Archive exports are
// usually a single part; the uploader splits anything larger transparently.
const uploadPartSize int64 = 8 * 1024 * 1024

// Writer implements domain.BlobWriter for the keeper's cold-storage archive.
// Uploads go through the SDK's upload manager, which handles small objects
// in one request and splits large exports into concurrent parts.
type Writer struct {
	uploader *manager.Uploader
	client   *Client
}

// NewWriter creates a Writer uploading into the client's bucket under its
// configured key prefix.
func NewWriter(c *Client) *Writer {
	return &Writer{
		uploader: manager.NewUploader(c.S3(), func(u *manager.Uploader) {
			u.PartSize = uploadPartSize
		}),
		client: c,
	}
}

// Put uploads data under the prefixed object key.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	key := w.client.ObjectKey(path)

	_, err := w.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.client.Bucket()),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BlobWriter = (*Writer)(nil)
