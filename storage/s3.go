package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Wasabi regional endpoints. Regions not listed here fall back to the
// configured endpoint override, then the default service endpoint.
var wasabiEndpoints = map[string]string{
	"us-east-1":      "https://s3.wasabisys.com",
	"us-east-2":      "https://s3.us-east-2.wasabisys.com",
	"us-west-1":      "https://s3.us-west-1.wasabisys.com",
	"eu-central-1":   "https://s3.eu-central-1.wasabisys.com",
	"eu-west-1":      "https://s3.eu-west-1.wasabisys.com",
	"eu-west-2":      "https://s3.eu-west-2.wasabisys.com",
	"ap-northeast-1": "https://s3.ap-northeast-1.wasabisys.com",
	"ap-northeast-2": "https://s3.ap-northeast-2.wasabisys.com",
	"ap-southeast-1": "https://s3.ap-southeast-1.wasabisys.com",
	"ap-southeast-2": "https://s3.ap-southeast-2.wasabisys.com",
}

const defaultWasabiEndpoint = "https://s3.wasabisys.com"

// S3Config configures the Wasabi backend.
type S3Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string // optional override for regions not in the endpoint map
	Logger    zerolog.Logger
}

// S3Backend stores media in a Wasabi (S3-compatible) bucket and hands out
// presigned download links.
type S3Backend struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	region   string
	endpoint string
	log      zerolog.Logger
}

// endpointForRegion resolves the Wasabi endpoint for a region, preferring the
// regional map over the override.
func endpointForRegion(region, override string) string {
	if ep, ok := wasabiEndpoints[region]; ok {
		return ep
	}
	if override != "" {
		return override
	}
	return defaultWasabiEndpoint
}

// NewS3 connects to Wasabi and makes sure the bucket exists.
func NewS3(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("missing required Wasabi credentials")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	endpoint := endpointForRegion(region, cfg.Endpoint)

	cfg.Logger.Info().Str("region", region).Str("endpoint", endpoint).Msg("connecting to Wasabi")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure S3 client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	b := &S3Backend{
		client:   client,
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		region:   region,
		endpoint: endpoint,
		log:      cfg.Logger,
	}
	if err := b.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// ensureBucket creates the bucket if it does not exist yet.
func (b *S3Backend) ensureBucket(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	if err == nil {
		b.log.Debug().Str("bucket", b.bucket).Msg("bucket exists and is accessible")
		return nil
	}

	var notFound *s3types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("error accessing bucket %s: %w", b.bucket, err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(b.bucket)}
	// us-east-1 must not carry a location constraint.
	if b.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(b.region),
		}
	}
	if _, err := b.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", b.bucket, err)
	}
	b.log.Info().Str("bucket", b.bucket).Str("region", b.region).Msg("created bucket")
	return nil
}

// Put uploads the file and returns the generated object key.
func (b *S3Backend) Put(ctx context.Context, localPath, filename, contentType string) (string, error) {
	key := uuid.New().String() + "." + extOf(filename)

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   f,
		Metadata: map[string]string{
			"original-filename": MetadataFilename(filename),
		},
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload file %q: %w", filename, err)
	}
	b.log.Info().Str("key", key).Str("filename", filename).Msg("uploaded file")
	return key, nil
}

// URL returns a presigned GET link that forces a download.
func (b *S3Backend) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(b.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String("attachment"),
		ResponseContentType:        aws.String("application/octet-stream"),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to generate URL for %s: %w", key, err)
	}
	b.log.Debug().Str("key", key).Dur("ttl", ttl).Msg("generated presigned URL")
	return req.URL, nil
}

// Delete removes the object from the bucket.
func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// List returns objects in the bucket, up to maxKeys.
func (b *S3Backend) List(ctx context.Context, prefix string, maxKeys int) ([]Object, error) {
	if maxKeys <= 0 {
		maxKeys = 100
	}
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(maxKeys)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	objects := make([]Object, 0, len(out.Contents))
	for _, obj := range out.Contents {
		o := Object{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
		if obj.LastModified != nil {
			o.LastModified = obj.LastModified.UTC().Format(time.RFC3339)
		}
		if obj.ETag != nil {
			o.ETag = trimQuotes(*obj.ETag)
		}
		objects = append(objects, o)
	}
	return objects, nil
}

// Info probes bucket access and location.
func (b *S3Backend) Info(ctx context.Context) Info {
	info := Info{
		Backend:  "wasabi",
		Bucket:   b.bucket,
		Region:   b.region,
		Endpoint: b.endpoint,
	}

	if _, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)}); err != nil {
		info.Error = err.Error()
		return info
	}
	info.Accessible = true

	if loc, err := b.client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(b.bucket)}); err == nil {
		if loc.LocationConstraint != "" {
			info.Region = string(loc.LocationConstraint)
		}
	}
	return info
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
