package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"eventhub/internal/domain"
)

// DefaultUploadExpiry is how long a presigned upload URL stays valid.
const DefaultUploadExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// S3Config holds the bucket and credentials used for event image uploads.
// Endpoint is set for S3-compatible stores such as MinIO; PublicURL overrides the
// base used to build the image URL stored on events.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
	Expiry    time.Duration
}

// S3ImageStorage presigns PUT requests so clients upload images directly to the bucket.
type S3ImageStorage struct {
	presigner *s3.PresignClient
	bucket    string
	publicURL string
	expiry    time.Duration
	now       func() time.Time
}

// NewS3ImageStorage builds the presign client once from cfg.
func NewS3ImageStorage(ctx context.Context, cfg S3Config) (*S3ImageStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultUploadExpiry
	}
	return &S3ImageStorage{
		presigner: newS3PresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		expiry:    expiry,
		now:       time.Now,
	}, nil
}

// PresignUpload returns a presigned PUT URL under events/<userID>/ for the given image content type.
func (s *S3ImageStorage) PresignUpload(ctx context.Context, userID, contentType string) (*domain.ImageUpload, error) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image content type %q", domain.ErrValidation, contentType)
	}
	key := path.Join("events", userID, uuid.NewString()+ext)
	req, err := presignPutObject(s.presigner, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return nil, fmt.Errorf("presign put object: %w", err)
	}
	imageURL, err := s.objectURL(req.URL, key)
	if err != nil {
		return nil, err
	}
	return &domain.ImageUpload{
		Key:       key,
		UploadURL: req.URL,
		ImageURL:  imageURL,
		ExpiresAt: s.now().Add(s.expiry).UTC(),
	}, nil
}

func (s *S3ImageStorage) objectURL(presigned, key string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	u, err := url.Parse(presigned)
	if err != nil {
		return "", fmt.Errorf("parse presigned url: %w", err)
	}
	u.RawQuery = ""
	return u.String(), nil
}

type disabledStorage struct{}

// Disabled returns an ImageStorage that always fails with domain.ErrStorageDisabled.
func Disabled() domain.ImageStorage {
	return disabledStorage{}
}

func (disabledStorage) PresignUpload(context.Context, string, string) (*domain.ImageUpload, error) {
	return nil, domain.ErrStorageDisabled
}
