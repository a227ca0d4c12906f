// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	awsx "github.com/staranto/apiqgo/internal/aws"
)

// ObjectGetter is the slice of the S3 API the fetcher needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads resources as objects under bucket/prefix. The request path
// becomes the object key.
type S3Fetcher struct {
	bucket  string
	prefix  string
	maxBody int64
	client  ObjectGetter
}

// NewS3 loads AWS configuration and returns an S3Fetcher.
func NewS3(ctx context.Context, bucket, prefix string, opts ...Option) (*S3Fetcher, error) {
	o := newOptions(opts)

	// The SDK counts the first call as an attempt.
	attempts := o.retries + 1
	client, err := awsx.NewS3Client(ctx,
		awsx.WithRegion(o.s3Region),
		awsx.WithProfile(o.s3Profile),
		awsx.WithEndpoint(o.s3Endpoint),
		awsx.WithRetryer(func() awsv2.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), attempts)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	f := NewS3WithClient(bucket, prefix, client)
	f.maxBody = o.maxBody
	return f, nil
}

// NewS3WithClient builds an S3Fetcher around an existing client.
func NewS3WithClient(bucket, prefix string, client ObjectGetter) *S3Fetcher {
	return &S3Fetcher{
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		maxBody: DefaultMaxBodySize,
		client:  client,
	}
}

// ObjectKey maps a request path to the object key.
func (f *S3Fetcher) ObjectKey(path string) string {
	key := strings.TrimPrefix(path, "/")
	if f.prefix != "" {
		key = f.prefix + "/" + key
	}
	return key
}

// Get implements Fetcher.
func (f *S3Fetcher) Get(ctx context.Context, path string) ([]byte, error) {
	key := f.ObjectKey(path)
	target := fmt.Sprintf("s3://%s/%s", f.bucket, key)

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awsv2.String(f.bucket),
		Key:    awsv2.String(key),
	})
	if err != nil {
		return nil, classifyS3(target, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, f.maxBody+1))
	if err != nil {
		return nil, &NetworkError{Target: target, Err: fmt.Errorf("failed to read object: %w", err)}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &NetworkError{Target: target, Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, f.maxBody)}
	}

	log.Debugf("GET %s: %d bytes", target, len(body))
	return body, nil
}

// classifyS3 maps SDK errors onto StatusError and NetworkError.
func classifyS3(target string, err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return &StatusError{Target: target, Status: http.StatusNotFound}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return &StatusError{Target: target, Status: respErr.HTTPStatusCode()}
	}

	return &NetworkError{Target: target, Err: err}
}
