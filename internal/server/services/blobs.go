package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
	sc "github.com/dmitrijs2005/companion/internal/server/config"
)

type presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type objectRemover interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Seams for tests.
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// BlobService hands out presigned URLs for objects under users/<uid>/ and
// removes them. Bytes never pass through the gateway.
type BlobService struct {
	bucket  string
	maxTTL  time.Duration
	presign presigner
	objects objectRemover
}

// NewBlobService builds an S3 client for the configured endpoint. Path-style
// addressing keeps MinIO and other S3-compatible stores working.
func NewBlobService(ctx context.Context, config *sc.Config) (*BlobService, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.S3RootUser, config.S3RootPassword, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newBlobService(config.S3Bucket, config.PresignTTL, s3.NewPresignClient(client), client), nil
}

func newBlobService(bucket string, maxTTL time.Duration, p presigner, o objectRemover) *BlobService {
	return &BlobService{bucket: bucket, maxTTL: maxTTL, presign: p, objects: o}
}

// Owns reports whether path is a well-formed key inside the user's prefix.
func Owns(userID, path string) bool {
	if userID == "" || strings.Contains(userID, "/") {
		return false
	}
	prefix := common.UserBlobPrefix + userID + "/"
	if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
		return false
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

func (s *BlobService) ttl(requested time.Duration) time.Duration {
	if requested <= 0 || (s.maxTTL > 0 && requested > s.maxTTL) {
		return s.maxTTL
	}
	return requested
}

// Sign returns a presigned URL for req. TTLs outside (0, PresignTTL] are
// clamped to PresignTTL.
func (s *BlobService) Sign(ctx context.Context, userID string, req gatewayrpc.SignRequest) (string, error) {
	if !Owns(userID, req.Path) {
		return "", fmt.Errorf("%w: path %q outside user prefix", common.ErrorUnauthorized, req.Path)
	}
	expires := s3.WithPresignExpires(s.ttl(req.TTL))

	switch req.Method {
	case gatewayrpc.BlobPut:
		in := &s3.PutObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(req.Path)}
		if req.ContentType != "" {
			in.ContentType = aws.String(req.ContentType)
		}
		out, err := s.presign.PresignPutObject(ctx, in, expires)
		if err != nil {
			return "", fmt.Errorf("presign put: %w", err)
		}
		return out.URL, nil
	case gatewayrpc.BlobGet:
		out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(req.Path)}, expires)
		if err != nil {
			return "", fmt.Errorf("presign get: %w", err)
		}
		return out.URL, nil
	default:
		return "", fmt.Errorf("%w: method %q", common.ErrorInvalidInput, req.Method)
	}
}

// Remove deletes the object at path. Removing a missing object succeeds.
func (s *BlobService) Remove(ctx context.Context, userID, path string) error {
	if !Owns(userID, path) {
		return fmt.Errorf("%w: path %q outside user prefix", common.ErrorUnauthorized, path)
	}
	_, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(path)})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
