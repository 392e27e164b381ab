package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ehagey/cra-legal-matching/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveService keeps copies of uploaded source documents in object
// storage, one prefix per job, so findings can be re-examined against the
// exact bytes that were analyzed. Optional: a nil service disables
// archiving, and archive failures never fail a job.
type ArchiveService struct {
	client *minio.Client
	bucket string
	config *config.ArchiveConfig
}

func NewArchiveService(cfg *config.ArchiveConfig) (*ArchiveService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &ArchiveService{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *ArchiveService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// StoreDocument archives one uploaded document under the job's prefix
func (s *ArchiveService) StoreDocument(ctx context.Context, jobID, filename string, data []byte) error {
	objectName := fmt.Sprintf("%s/%s", jobID, filename)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return fmt.Errorf("failed to archive document: %w", err)
	}
	return nil
}

// StoreJobDocuments archives every uploaded document of a job, logging and
// skipping individual failures.
func (s *ArchiveService) StoreJobDocuments(ctx context.Context, jobID string, docs map[string][]byte) {
	for filename, data := range docs {
		if err := s.StoreDocument(ctx, jobID, filename, data); err != nil {
			slog.Warn("failed to archive document", "job_id", jobID, "filename", filename, "error", err)
		}
	}
}

// ArchivedDocument is one archived upload with a time-limited download URL
type ArchivedDocument struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// ListJobDocuments returns presigned URLs for every document archived
// under the job's prefix.
func (s *ArchiveService) ListJobDocuments(ctx context.Context, jobID string) ([]ArchivedDocument, error) {
	expiry := time.Duration(s.config.ExpireDays) * 24 * time.Hour
	prefix := jobID + "/"

	var docs []ArchivedDocument
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list archived documents: %w", object.Err)
		}
		url, err := s.client.PresignedGetObject(ctx, s.bucket, object.Key, expiry, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
		}
		docs = append(docs, ArchivedDocument{
			Filename: object.Key[len(prefix):],
			Size:     object.Size,
			URL:      url.String(),
		})
	}
	return docs, nil
}
