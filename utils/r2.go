// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/unidecode"
)

// R2Archive stores generated content payloads in a Cloudflare R2 bucket.
type R2Archive struct {
	client *s3.Client
	bucket string
}

// NewR2Archive builds an S3 client against the account's R2 endpoint.
func NewR2Archive(ctx context.Context, accountID, accessKeyID, accessKeySecret, bucket string) (*R2Archive, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Archive{client: client, bucket: bucket}, nil
}

// Put uploads body under key (e.g. "lessons/1/greetings.json") with meta as
// object user metadata.
func (a *R2Archive) Put(ctx context.Context, key string, body []byte, contentType string, meta map[string]string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    ASCIIMetadata(meta),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}
	return nil
}

// ASCIIMetadata transliterates metadata values. S3 user metadata travels as
// x-amz-meta-* headers, which only carry US-ASCII; titles like "Salutări"
// become "Salutari".
func ASCIIMetadata(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = unidecode.Unidecode(v)
	}
	return out
}

// NopArchive discards payloads when no bucket is configured.
type NopArchive struct{}

func (NopArchive) Put(context.Context, string, []byte, string, map[string]string) error { return nil }
