// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/bureau-foundation/whiteboard/lib/assetid"
)

// hashMetadataKey is the S3 user metadata entry holding the content
// hash (sent as x-amz-meta-blake3).
const hashMetadataKey = "blake3"

// S3Options configures an S3Store.
type S3Options struct {
	Bucket string

	// Prefix is prepended to every key, e.g. "uploads/".
	Prefix string

	// Endpoint overrides the AWS endpoint for S3-compatible stores.
	// Setting it switches to path-style addressing.
	Endpoint string

	// Region defaults to the SDK's resolution, or "auto" when an
	// endpoint is set.
	Region string

	AccessKeyID     string
	AccessKeySecret string
	DisableHTTPS    bool

	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// S3Store is a Backend on an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Store builds an S3 client from options and the default AWS
// configuration chain. Static credentials take precedence when set.
func NewS3Store(ctx context.Context, options S3Options) (*S3Store, error) {
	if options.Bucket == "" {
		return nil, errors.New("objectstore: S3 bucket is required")
	}

	var (
		loadOptions []func(*awsconfig.LoadOptions) error
		s3Options   []func(*s3.Options)
	)

	region := options.Region
	if region == "" && options.Endpoint != "" {
		region = "auto"
	}
	if region != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(region))
	}

	if options.Endpoint != "" {
		endpoint := options.Endpoint
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.EndpointOptions.DisableHTTPS = options.DisableHTTPS
			o.UsePathStyle = true
			// S3-compatible stores differ in their support for the
			// default request checksums.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		})
	}

	if options.AccessKeyID != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(options.AccessKeyID, options.AccessKeySecret, "")))
	}

	if options.HTTPClient != nil {
		loadOptions = append(loadOptions, awsconfig.WithHTTPClient(options.HTTPClient))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: loading AWS SDK config: %w", err)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &S3Store{
		client: s3.NewFromConfig(cfg, s3Options...),
		bucket: options.Bucket,
		prefix: options.Prefix,
		logger: logger,
	}, nil
}

// Put uploads data under key with its content hash in user metadata.
func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (Object, error) {
	if err := ValidateKey(key); err != nil {
		return Object{}, err
	}

	hash := assetid.HashBytes(data)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.prefix + key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      map[string]string{hashMetadataKey: hash},
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Object{}, fmt.Errorf("objectstore: put %q: %w", key, err)
	}

	s.logger.Debug("stored object in bucket",
		"bucket", s.bucket,
		"key", key,
		"size", len(data),
	)

	// Read back the server's timestamp so Put and Stat agree.
	object, err := s.Stat(ctx, key)
	if err != nil {
		return Object{}, err
	}
	return object, nil
}

// Get downloads the object under key.
func (s *S3Store) Get(ctx context.Context, key string) (Object, io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return Object{}, nil, err
	}

	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		return Object{}, nil, s.mapError("get", key, err)
	}

	object := Object{
		Key:         key,
		ContentType: aws.ToString(output.ContentType),
		Size:        aws.ToInt64(output.ContentLength),
		Hash:        output.Metadata[hashMetadataKey],
		StoredAt:    aws.ToTime(output.LastModified),
	}
	return object, output.Body, nil
}

// Stat returns the object's metadata with a HEAD request.
func (s *S3Store) Stat(ctx context.Context, key string) (Object, error) {
	if err := ValidateKey(key); err != nil {
		return Object{}, err
	}

	output, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		return Object{}, s.mapError("stat", key, err)
	}

	return Object{
		Key:         key,
		ContentType: aws.ToString(output.ContentType),
		Size:        aws.ToInt64(output.ContentLength),
		Hash:        output.Metadata[hashMetadataKey],
		StoredAt:    aws.ToTime(output.LastModified),
	}, nil
}

// mapError turns missing-object API errors into ErrNotFound. GetObject
// reports NoSuchKey; HeadObject has no body and reports NotFound.
func (s *S3Store) mapError(operation, key string, err error) error {
	var apiError smithy.APIError
	if errors.As(err, &apiError) {
		switch apiError.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
	}
	return fmt.Errorf("objectstore: %s %q: %w", operation, key, err)
}
