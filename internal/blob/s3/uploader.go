package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Uploader publishes the artifacts of a finished run under
// "{prefix}/{run id}/".
type Uploader struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	logger   *zap.Logger
}

// NewUploader creates an uploader writing under prefix.
func NewUploader(c *Client, prefix string, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		client:   c.S3(),
		uploader: manager.NewUploader(c.S3()),
		bucket:   c.Bucket(),
		prefix:   prefix,
		logger:   logger,
	}
}

// Key returns the object key of name for runID.
func (u *Uploader) Key(runID, name string) string {
	return path.Join(u.prefix, runID, name)
}

// UploadFile streams a local file, splitting large files into parts.
func (u *Uploader) UploadFile(ctx context.Context, runID, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("s3blob: open %s: %w", localPath, err)
	}
	defer f.Close()

	key := u.Key(runID, path.Base(localPath))
	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: upload %s: %w", key, err)
	}

	u.logger.Info("artifact uploaded", zap.String("bucket", u.bucket), zap.String("key", key))
	return key, nil
}

// Put uploads an in-memory object.
func (u *Uploader) Put(ctx context.Context, runID, name string, data []byte, contentType string) (string, error) {
	key := u.Key(runID, name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: put object %s: %w", key, err)
	}

	u.logger.Info("artifact uploaded", zap.String("bucket", u.bucket), zap.String("key", key))
	return key, nil
}
