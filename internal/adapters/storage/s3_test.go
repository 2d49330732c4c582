package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
)

func testConfig() S3Config {
	return S3Config{
		Bucket:    "eventhub",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}
}

func TestNewS3ImageStorage_requires_bucket(t *testing.T) {
	_, err := NewS3ImageStorage(context.Background(), S3Config{Region: "us-east-1"})
	require.Error(t, err)
}

func TestNewS3ImageStorage_applies_options(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{Region: lo.Region}, nil
	}
	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return origNewS3(cfg, optFns...)
	}

	st, err := NewS3ImageStorage(context.Background(), testConfig())
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, DefaultUploadExpiry, st.expiry)
}

func TestNewS3ImageStorage_load_error(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3ImageStorage(context.Background(), testConfig())
	require.Error(t, err)
}

func TestS3ImageStorage_PresignUpload(t *testing.T) {
	st, err := NewS3ImageStorage(context.Background(), testConfig())
	require.NoError(t, err)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return fixed }

	up, err := st.PresignUpload(context.Background(), "user-1", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.Key, "events/user-1/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.True(t, strings.HasPrefix(up.UploadURL, "http://127.0.0.1:9000/eventhub/"+up.Key+"?"))
	assert.Contains(t, up.UploadURL, "X-Amz-Signature=")
	assert.Equal(t, "http://127.0.0.1:9000/eventhub/"+up.Key, up.ImageURL)
	assert.Equal(t, fixed.Add(DefaultUploadExpiry), up.ExpiresAt)
}

func TestS3ImageStorage_PresignUpload_public_url(t *testing.T) {
	cfg := testConfig()
	cfg.PublicURL = "https://cdn.example.com/"
	st, err := NewS3ImageStorage(context.Background(), cfg)
	require.NoError(t, err)

	up, err := st.PresignUpload(context.Background(), "user-1", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+up.Key, up.ImageURL)
}

func TestS3ImageStorage_PresignUpload_rejects_content_type(t *testing.T) {
	st, err := NewS3ImageStorage(context.Background(), testConfig())
	require.NoError(t, err)

	_, err = st.PresignUpload(context.Background(), "user-1", "application/pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestS3ImageStorage_PresignUpload_presign_error(t *testing.T) {
	st, err := NewS3ImageStorage(context.Background(), testConfig())
	require.NoError(t, err)
	orig := presignPutObject
	t.Cleanup(func() { presignPutObject = orig })
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("boom")
	}

	_, err = st.PresignUpload(context.Background(), "user-1", "image/png")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrValidation))
}

func TestDisabled(t *testing.T) {
	_, err := Disabled().PresignUpload(context.Background(), "user-1", "image/png")
	assert.ErrorIs(t, err, domain.ErrStorageDisabled)
}
