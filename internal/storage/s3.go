package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// maxDeleteBatch is the most keys one DeleteObjects call accepts.
const maxDeleteBatch = 1000

// S3Store reads and writes s3://bucket/key URIs.
type S3Store struct {
	client   s3iface.S3API
	uploader s3manageriface.UploaderAPI
	logger   *log.Logger
}

// NewS3Store creates a store from the default credential chain. A nil logger uses log.Default().
func NewS3Store(region string, logger *log.Logger) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	store := NewS3StoreWith(s3.New(sess), s3manager.NewUploader(sess))
	if logger != nil {
		store.SetLogger(logger)
	}
	return store, nil
}

// NewS3StoreWith creates a store from existing clients.
func NewS3StoreWith(client s3iface.S3API, uploader s3manageriface.UploaderAPI) *S3Store {
	return &S3Store{client: client, uploader: uploader, logger: log.Default()}
}

// SetLogger replaces the store's logger.
func (s *S3Store) SetLogger(l *log.Logger) {
	s.logger = l
}

// ParseS3URI splits s3://bucket/key into bucket and key. s3n and s3a schemes are accepted.
func ParseS3URI(uri string) (bucket, key string, err error) {
	_, rest, ok := strings.Cut(uri, "://")
	if !ok || !IsS3(uri) {
		return "", "", fmt.Errorf("not an S3 URI: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in %q", uri)
	}
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return bucket, strings.Trim(key, "/"), nil
}

func (s *S3Store) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start download stream for %s: %v", ErrSourceUnavailable, uri, err)
	}
	return out.Body, nil
}

func (s *S3Store) PutFile(ctx context.Context, localPath, uri string) error {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return err
	}
	return s.upload(ctx, localPath, bucket, key)
}

// ReplaceDir uploads every file under localDir below the prefix, then deletes the
// keys under the prefix that the upload did not write. If any upload fails the
// previous keys are left in place.
func (s *S3Store) ReplaceDir(ctx context.Context, localDir, uri string) error {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return err
	}

	existing, err := s.list(ctx, bucket, prefix+"/")
	if err != nil {
		return err
	}

	written := make(map[string]bool)
	err = filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		key := prefix + "/" + filepath.ToSlash(rel)
		if err := s.upload(ctx, path, bucket, key); err != nil {
			return err
		}
		written[key] = true
		return nil
	})
	if err != nil {
		return err
	}

	var stale []string
	for _, key := range existing {
		if !written[key] {
			stale = append(stale, key)
		}
	}
	if len(stale) > 0 {
		s.logger.Printf("Removing %d stale objects under s3://%s/%s", len(stale), bucket, prefix)
	}
	return s.delete(ctx, bucket, stale)
}

func (s *S3Store) upload(ctx context.Context, localPath, bucket, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s for upload: %w", localPath, err)
	}
	defer file.Close()

	result, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", bucket, key, err)
	}
	s.logger.Printf("Uploaded %s (Location: %s)", key, result.Location)

	// Verify upload
	_, err = s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("upload verification failed for s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *S3Store) list(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	err := s.client.ListObjectsPagesWithContext(ctx,
		&s3.ListObjectsInput{Bucket: aws.String(bucket), Prefix: aws.String(prefix)},
		func(page *s3.ListObjectsOutput, lastPage bool) bool {
			for _, obj := range page.Contents {
				keys = append(keys, aws.StringValue(obj.Key))
			}
			return !lastPage
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list s3://%s/%s: %w", bucket, prefix, err)
	}
	return keys, nil
}

func (s *S3Store) delete(ctx context.Context, bucket string, keys []string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		objects := make([]*s3.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(k)})
		}
		out, err := s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete stale objects in %s: %w", bucket, err)
		}
		// DeleteObjects succeeds as a request even when individual keys fail.
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("failed to delete %d stale objects in %s: s3://%s/%s: %s: %s",
				len(out.Errors), bucket, bucket, aws.StringValue(first.Key),
				aws.StringValue(first.Code), aws.StringValue(first.Message))
		}
	}
	return nil
}
