package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"course-video-service/domain/ports"
	"course-video-service/pkg/logger"
)

// deleteBatchSize DeleteObjects รับได้สูงสุด 1000 keys ต่อ request
const deleteBatchSize = 1000

// R2Storage implements StoragePort สำหรับ Cloudflare R2 ผ่าน aws-sdk-go-v2
type R2Storage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	publicURL     string
}

type R2StorageConfig struct {
	Endpoint  string // https://<account>.r2.cloudflarestorage.com
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
}

func NewR2Storage(ctx context.Context, cfg R2StorageConfig) (*R2Storage, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("R2 endpoint is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	logger.Info("R2 storage initialized", "bucket", cfg.Bucket)

	return &R2Storage{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		publicURL:     strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// UploadFile file ควรเป็น io.ReadSeeker (os.File, bytes.Reader) เพื่อให้ SDK sign payload ได้
func (r *R2Storage) UploadFile(ctx context.Context, file io.Reader, size int64, path string, contentType string) error {
	path = normalizeKey(path)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(path),
		Body:        file,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}

	logger.Debug("File uploaded to R2", "path", path, "content_type", contentType)
	return nil
}

func (r *R2Storage) DownloadFile(ctx context.Context, path string, localPath string) error {
	body, _, err := r.GetFileContent(ctx, path)
	if err != nil {
		return err
	}
	defer body.Close()

	return writeLocalFile(localPath, body)
}

func (r *R2Storage) StatFile(ctx context.Context, path string) (*ports.FileInfo, error) {
	path = normalizeKey(path)

	out, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isAWSNotFound(err) {
			return nil, ports.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return &ports.FileInfo{
		Path:         path,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (r *R2Storage) DeleteFile(ctx context.Context, path string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(normalizeKey(path)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from R2: %w", err)
	}
	return nil
}

// DeleteFolder list ทีละหน้าและลบเป็น batch
func (r *R2Storage) DeleteFolder(ctx context.Context, prefix string) error {
	prefix, err := folderPrefix(prefix)
	if err != nil {
		return err
	}

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}

		for start := 0; start < len(page.Contents); start += deleteBatchSize {
			end := min(start+deleteBatchSize, len(page.Contents))

			ids := make([]types.ObjectIdentifier, 0, end-start)
			for _, obj := range page.Contents[start:end] {
				ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
			}

			out, err := r.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(r.bucket),
				Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
			})
			if err != nil {
				return fmt.Errorf("failed to delete objects: %w", err)
			}
			if len(out.Errors) > 0 {
				first := out.Errors[0]
				return fmt.Errorf("failed to delete %d objects under %s: %s: %s",
					len(out.Errors), prefix, aws.ToString(first.Key), aws.ToString(first.Message))
			}
			deleted += len(ids)
		}
	}

	logger.Info("Folder deleted from R2", "prefix", prefix, "objects", deleted)
	return nil
}

func (r *R2Storage) GetFileContent(ctx context.Context, path string) (io.ReadCloser, *ports.FileInfo, error) {
	path = normalizeKey(path)

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isAWSNotFound(err) {
			return nil, nil, ports.ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to get file from R2: %w", err)
	}

	return out.Body, &ports.FileInfo{
		Path:         path,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (r *R2Storage) GetFileRange(ctx context.Context, path string, start, end int64) (io.ReadCloser, int64, error) {
	info, err := r.StatFile(ctx, path)
	if err != nil {
		return nil, 0, err
	}

	actualEnd := end
	if end < 0 || end >= info.Size {
		actualEnd = info.Size - 1
	}

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(info.Path),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, actualEnd)),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object range: %w", err)
	}

	return out.Body, info.Size, nil
}

func (r *R2Storage) PresignUpload(ctx context.Context, path string, contentType string, expiry time.Duration) (*ports.PresignedUpload, error) {
	req, err := r.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(normalizeKey(path)),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign URL: %w", err)
	}

	headers := map[string]string{"Content-Type": contentType}
	for name, values := range req.SignedHeader {
		if strings.EqualFold(name, "host") || len(values) == 0 {
			continue
		}
		headers[http.CanonicalHeaderKey(name)] = values[0]
	}

	return &ports.PresignedUpload{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   headers,
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

func (r *R2Storage) GetFileURL(path string) string {
	return fmt.Sprintf("%s/%s", r.publicURL, normalizeKey(path))
}

func (r *R2Storage) GetProviderName() string {
	return "r2"
}

func isAWSNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

var _ ports.StoragePort = (*R2Storage)(nil)
