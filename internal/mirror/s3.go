// internal/mirror/s3.go
// S3-compatible implementation of the Mirror interface. The catalog lives as
// a single JSON object in a bucket; the object ETag serves as the version
// tag, and writes are conditioned on it with If-Match so concurrent writers
// surface as conflicts instead of silent lost updates.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/sarabot/sara-catalog-go/internal/model"
)

// S3 mirrors the catalog into an S3-compatible bucket.
type S3 struct {
	client  *s3.Client    // AWS S3 client
	bucket  string        // Bucket holding the mirrored catalog
	key     string        // Object key of the catalog document
	timeout time.Duration // Bound applied to every remote call
}

// NewS3 creates a mirror backed by an S3-compatible service (AWS S3, MinIO,
// and the like).
// Parameters:
//   - endpoint: S3 service endpoint URL
//   - region: AWS region (or equivalent for S3-compatible services)
//   - bucket: bucket holding the mirrored catalog
//   - key: object key of the catalog document
//   - accessKey: access key for authentication
//   - secretKey: secret key for authentication
//   - timeout: bound applied to every remote call
// Returns:
//   - *S3: initialized mirror
//   - error: any error that occurred during initialization
func NewS3(endpoint, region, bucket, key, accessKey, secretKey string, timeout time.Duration) (*S3, error) {
	// Load AWS configuration with custom endpoint and credentials
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(region),
		awsconfig.WithBaseEndpoint(endpoint),
		// Configure static credentials
		awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     accessKey,
					SecretAccessKey: secretKey,
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with path-style addressing for compatibility
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO and other S3-compatible services
	})

	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &S3{
		client:  client,
		bucket:  bucket,
		key:     key,
		timeout: timeout,
	}, nil
}

// Fetch implements Mirror. It retrieves the mirrored catalog and its ETag.
// A bucket without the catalog object yet is not a failure: the first Push
// will create it. Every other error degrades to ErrUnavailable so the caller
// falls back to the local store.
func (m *S3) Fetch(ctx context.Context) (model.Catalog, VersionTag, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket), // Target bucket
		Key:    aws.String(m.key),    // Catalog object key
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return model.Catalog{}, "", nil
		}
		return nil, "", fmt.Errorf("%w: get %s/%s: %v", ErrUnavailable, m.bucket, m.key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read %s/%s: %v", ErrUnavailable, m.bucket, m.key, err)
	}

	var catalog model.Catalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, "", fmt.Errorf("%w: parse %s/%s: %v", ErrUnavailable, m.bucket, m.key, err)
	}

	return catalog, VersionTag(aws.ToString(out.ETag)), nil
}

// Push implements Mirror. It writes the whole catalog document conditioned
// on the supplied tag: If-Match for an existing object, If-None-Match: * for
// the initial write. HTTP 412 from the remote is surfaced as ErrConflict,
// everything else as ErrUnavailable. Pushes are never retried here.
func (m *S3) Push(ctx context.Context, catalog model.Catalog, tag VersionTag) (VersionTag, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if catalog == nil {
		catalog = model.Catalog{}
	}

	// Keep the mirrored document byte-compatible with the local store:
	// indented, non-ASCII preserved.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(catalog); err != nil {
		return "", fmt.Errorf("%w: encode catalog: %v", ErrUnavailable, err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),           // Target bucket
		Key:         aws.String(m.key),              // Catalog object key
		Body:        bytes.NewReader(buf.Bytes()),   // Full-document overwrite
		ContentType: aws.String("application/json"), // Mirrored document type
	}
	if tag == "" {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(string(tag))
	}

	out, err := m.client.PutObject(ctx, input)
	if err != nil {
		if isPreconditionFailure(err) {
			return "", fmt.Errorf("%w: put %s/%s", ErrConflict, m.bucket, m.key)
		}
		return "", fmt.Errorf("%w: put %s/%s: %v", ErrUnavailable, m.bucket, m.key, err)
	}

	return VersionTag(aws.ToString(out.ETag)), nil
}

// isPreconditionFailure reports whether an S3 error is a conditional-write
// rejection rather than a generic failure.
func isPreconditionFailure(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
