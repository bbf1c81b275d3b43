package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/formsummary/internal/gcp"
	"github.com/Lllllllleong/formsummary/internal/models"
	"github.com/Lllllllleong/formsummary/internal/store"
)

// GCSArchive copies every completed summary to a bucket, at most once per
// submission.
type GCSArchive struct {
	bucket     *storage.BucketHandle
	bucketName string
}

func NewGCSArchive(client *storage.Client, bucketName string) *GCSArchive {
	return &GCSArchive{
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
	}
}

func (a *GCSArchive) Name() string { return "archive" }

// ArchiveObjectName derives the object name from the hashed submission id;
// the raw id is untrusted and never becomes part of a path.
func ArchiveObjectName(id string) string {
	return fmt.Sprintf("results/%s.md", store.DocumentID(id))
}

func (a *GCSArchive) AfterComplete(ctx context.Context, sub models.Submission) error {
	objectName := ArchiveObjectName(sub.ID)
	if err := gcp.SaveToGCSAtomically(ctx, a.bucket, objectName, sub.Result); err != nil {
		return fmt.Errorf("failed to archive result to gs://%s/%s: %w", a.bucketName, objectName, err)
	}
	return nil
}
