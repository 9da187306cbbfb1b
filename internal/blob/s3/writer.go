package s3blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// minPartSize is the smallest part S3 accepts in a multipart upload.
const minPartSize int64 = 5 * 1024 * 1024

// Writer implements domain.BlobWriter. Every object it writes carries a
// "saved-at" metadata entry with the upload time in RFC 3339.
type Writer struct {
	client *Client
	now    func() time.Time
}

// NewWriter creates a new Writer that uploads objects to the given client's
// configured bucket.
func NewWriter(c *Client) *Writer {
	return &Writer{client: c, now: time.Now}
}

// Put uploads data as a single S3 PutObject request. This suits snapshots
// small enough to send in one shot; larger payloads should go through
// PutMultipart. An existing object under name is overwritten.
func (w *Writer) Put(ctx context.Context, name string, data io.Reader, contentType string) error {
	key := w.client.Key(name)
	_, err := w.client.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.client.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
		Metadata:    w.metadata(),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", key, err)
	}
	return nil
}

// PutMultipart uploads data using the S3 multipart upload manager, which
// splits the payload into parts and uploads them concurrently. The partSize
// parameter controls the size of each part in bytes; if it is smaller than
// the S3 minimum (5 MiB) it is raised to the minimum. The object is stored
// as text/csv.
func (w *Writer) PutMultipart(ctx context.Context, name string, data io.Reader, partSize int64) error {
	if partSize < minPartSize {
		partSize = minPartSize
	}
	key := w.client.Key(name)
	uploader := manager.NewUploader(w.client.s3, func(u *manager.Uploader) {
		u.PartSize = partSize
	})
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.client.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String("text/csv"),
		Metadata:    w.metadata(),
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", key, err)
	}
	return nil
}

func (w *Writer) metadata() map[string]string {
	return map[string]string{"saved-at": w.now().UTC().Format(time.RFC3339)}
}

var _ domain.BlobWriter = (*Writer)(nil)
