package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/hupe1980/nerdgo/blobstore"
	"github.com/hupe1980/nerdgo/blobstore/minio"
	s3store "github.com/hupe1980/nerdgo/blobstore/s3"
)

// openStore resolves a store location.
//
//	./store                                  local directory
//	s3://bucket/prefix?region=eu-west-1      S3, optional endpoint=... and ddb_table=...
//	minio://host:9000/bucket/prefix?secure=false
//
// MinIO credentials come from MINIO_ACCESS_KEY and MINIO_SECRET_KEY.
func openStore(ctx context.Context, location string) (blobstore.BlobStore, error) {
	if !strings.Contains(location, "://") {
		if err := os.MkdirAll(location, 0o755); err != nil {
			return nil, err
		}
		return blobstore.NewLocalStore(location), nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid store %q: %w", location, err)
	}
	q := u.Query()

	switch u.Scheme {
	case "file":
		return openStore(ctx, u.Path)
	case "s3":
		return openS3(ctx, u, q)
	case "minio":
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		secure := true
		if v := q.Get("secure"); v != "" {
			if secure, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("invalid secure flag %q: %w", v, err)
			}
		}
		return minio.Connect(ctx, minio.Config{
			Endpoint:     u.Host,
			AccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey:    os.Getenv("MINIO_SECRET_KEY"),
			Bucket:       bucket,
			Prefix:       withSlash(prefix),
			Region:       q.Get("region"),
			Secure:       secure,
			CreateBucket: true,
		})
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}

func openS3(ctx context.Context, u *url.URL, q url.Values) (blobstore.BlobStore, error) {
	opts := []s3store.Option{s3store.WithPrefix(withSlash(strings.TrimPrefix(u.Path, "/")))}
	if region := q.Get("region"); region != "" {
		opts = append(opts, s3store.WithRegion(region))
	}
	if endpoint := q.Get("endpoint"); endpoint != "" {
		opts = append(opts, s3store.WithEndpoint(endpoint))
	}
	st, err := s3store.New(ctx, u.Host, opts...)
	if err != nil {
		return nil, err
	}

	table := q.Get("ddb_table")
	if table == "" {
		return st, nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if region := q.Get("region"); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	base := "s3://" + u.Host + u.Path
	return s3store.NewDDBCommitStore(st, dynamodb.NewFromConfig(cfg), table, base), nil
}

func withSlash(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
