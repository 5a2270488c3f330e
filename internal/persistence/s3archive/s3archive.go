// Package s3archive optionally ships Avro config snapshots to an S3
// bucket for cold, off-host backup. It is never on the hot path: the
// reference store (sqlitestore) remains authoritative. Nothing in this
// repository calls the Archiver; a caller uploads blobs with Put.
package s3archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// Archiver ships snapshot blobs to a single S3 bucket/prefix.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// New loads the default AWS credential chain and targets bucket/prefix.
func New(ctx context.Context, bucket, prefix string) (*Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Archiver{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// Put uploads a driver's snapshot blob under a timestamped key.
func (a *Archiver) Put(ctx context.Context, driver string, data []byte, at time.Time) error {
	key := fmt.Sprintf("%s/%s/%d.avro", a.prefix, driver, at.UnixMilli())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		cclog.Warnf("[S3ARCHIVE]> put %s: %v", key, err)
		return err
	}
	cclog.Debugf("[S3ARCHIVE]> archived %s (%d bytes)", key, len(data))
	return nil
}
