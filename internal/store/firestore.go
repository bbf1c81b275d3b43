package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/formsummary/internal/models"
)

// FirestoreStore keeps records in a Firestore collection so that several
// processes can share them. Create is Firestore's set-if-absent primitive and
// carries the de-duplication guarantee across instances.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	ttl        time.Duration
	now        func() time.Time
}

// NewFirestoreStore returns a store over collection. A positive ttl stamps
// terminal records with expireAt for a Firestore TTL policy.
func NewFirestoreStore(client *firestore.Client, collection string, ttl time.Duration) *FirestoreStore {
	return &FirestoreStore{
		client:     client,
		collection: collection,
		ttl:        ttl,
		now:        time.Now,
	}
}

// DocumentID derives the Firestore document id for a submission id. Raw ids
// are untrusted and may contain characters Firestore rejects in paths.
func DocumentID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

func (s *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(DocumentID(id))
}

func (s *FirestoreStore) TryBeginProcessing(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}
	now := s.now()
	rec := models.Submission{
		ID:        id,
		Status:    models.StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.doc(id).Create(ctx, rec)
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create submission record: %w", err)
	}
	return true, nil
}

func (s *FirestoreStore) Complete(ctx context.Context, id, result string) error {
	return s.finish(ctx, id, func(rec *models.Submission) {
		rec.Status = models.StatusDone
		rec.Result = result
	})
}

func (s *FirestoreStore) Fail(ctx context.Context, id, message string) error {
	return s.finish(ctx, id, func(rec *models.Submission) {
		rec.Status = models.StatusFailed
		rec.Error = message
	})
}

func (s *FirestoreStore) finish(ctx context.Context, id string, apply func(*models.Submission)) error {
	ref := s.doc(id)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to read submission record: %w", err)
		}

		var rec models.Submission
		if err := snap.DataTo(&rec); err != nil {
			return fmt.Errorf("failed to decode submission record: %w", err)
		}
		if rec.Status != models.StatusInProgress {
			return fmt.Errorf("%w: %q is already %s", ErrInvalidTransition, id, rec.Status)
		}

		apply(&rec)
		rec.UpdatedAt = s.now()
		if s.ttl > 0 {
			rec.ExpireAt = rec.UpdatedAt.Add(s.ttl)
		}
		return tx.Set(ref, rec)
	})
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (models.Submission, bool, error) {
	if id == "" {
		return models.Submission{}, false, nil
	}
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.Submission{}, false, nil
	}
	if err != nil {
		return models.Submission{}, false, fmt.Errorf("failed to read submission record: %w", err)
	}

	var rec models.Submission
	if err := snap.DataTo(&rec); err != nil {
		return models.Submission{}, false, fmt.Errorf("failed to decode submission record: %w", err)
	}
	return rec, true, nil
}
