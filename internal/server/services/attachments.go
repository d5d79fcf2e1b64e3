package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	sc "github.com/dmitrijs2005/fieldkeeper/internal/server/config"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/models"
)

const (
	MethodPut = "PUT"
	MethodGet = "GET"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// recordGetter is the part of RecordService attachments need.
type recordGetter interface {
	Get(ctx context.Context, id string) (*models.Record, error)
}

// AttachmentService hands out presigned S3 URLs for attachment blobs. The
// blobs live under attachments/<record id>/<file name>.
type AttachmentService struct {
	records recordGetter
	config  *sc.Config
	expiry  time.Duration
}

func NewAttachmentService(records recordGetter, cfg *sc.Config) *AttachmentService {
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &AttachmentService{records: records, config: cfg, expiry: expiry}
}

// StorageKey returns the object key of fileName attached to recordID.
func StorageKey(recordID, fileName string) string {
	return fmt.Sprintf("attachments/%s/%s", recordID, fileName)
}

func (s *AttachmentService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return s3.NewPresignClient(client), nil
}

// Presign returns the object key and a presigned URL for method on the blob
// fileName of recordID. Anyone may download; only the owner may upload.
func (s *AttachmentService) Presign(ctx context.Context, curatorID, recordID, fileName, method string) (string, string, error) {
	method = strings.ToUpper(method)
	if method != MethodPut && method != MethodGet {
		return "", "", fmt.Errorf("%w: unsupported method %q", common.ErrValidation, method)
	}
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", "", fmt.Errorf("%w: bad file name %q", common.ErrValidation, fileName)
	}

	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return "", "", err
	}
	if method == MethodPut && rec.OwnerID != curatorID {
		return "", "", fmt.Errorf("record %s: %w", recordID, ErrNotOwner)
	}

	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := StorageKey(recordID, name)
	expires := s3.WithPresignExpires(s.expiry)

	var req *v4.PresignedHTTPRequest
	if method == MethodPut {
		req, err = presignPutObject(pc, ctx, &s3.PutObjectInput{Bucket: &bucket, Key: &key}, expires)
	} else {
		req, err = presignGetObject(pc, ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key}, expires)
	}
	if err != nil {
		return "", "", fmt.Errorf("presign %s: %w", method, err)
	}
	return key, req.URL, nil
}
