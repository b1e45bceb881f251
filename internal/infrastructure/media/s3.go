package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/hilthontt/civicreport/internal/domain"
)

type uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3 stores attachments in a bucket. Credentials come from the standard
// AWS environment chain.
type S3 struct {
	uploader  uploader
	bucket    string
	prefix    string
	publicURL string
}

func NewS3(region, bucket, prefix, publicURL string) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 not configured: bucket is required")
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return newS3(s3manager.NewUploader(sess), bucket, prefix, publicURL), nil
}

func newS3(u uploader, bucket, prefix, publicURL string) *S3 {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3{
		uploader:  u,
		bucket:    bucket,
		prefix:    prefix,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *S3) Upload(ctx context.Context, m domain.Media) (string, error) {
	if err := Check(m); err != nil {
		return "", err
	}

	key := s.prefix + objectName(m)
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(m.Data),
		ContentType: aws.String(normalizeType(m.ContentType)),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}

	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	return out.Location, nil
}
