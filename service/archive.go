package service

import (
	"blurrer/config"
	"blurrer/converter"
	"bytes"
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"path"
	"time"
)

// Archive keeps a copy of every produced image.
type Archive interface {
	Store(ctx context.Context, requestID string, f converter.Format, body []byte) (string, error)
}

func NewS3Client(cfg config.S3) (*s3.S3, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.Endpoint != ""),
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	awsSession, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}

	return s3.New(awsSession), nil
}

type S3Archive struct {
	s3     s3iface.S3API
	bucket string
	prefix string

	now   func() time.Time
	newID func() string
}

func NewS3Archive(client s3iface.S3API, cfg config.S3) *S3Archive {
	return &S3Archive{s3: client, bucket: cfg.Bucket, prefix: cfg.Prefix, now: time.Now, newID: uuid.NewString}
}

// Key names a new object under the prefix. The request id comes from the
// client, so it is only ever stored as metadata.
func (a *S3Archive) Key(f converter.Format) string {
	return path.Join(a.prefix, a.now().UTC().Format("2006/01/02"), a.newID()+f.Ext())
}

func (a *S3Archive) Store(ctx context.Context, requestID string, f converter.Format, body []byte) (string, error) {
	key := a.Key(f)

	_, err := a.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(f.ContentType()),
		Metadata:      map[string]*string{"Request-Id": aws.String(requestID)},
	})
	if err != nil {
		return "", err
	}

	return key, nil
}
