package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
)

// firestoreDatabase resolves the database to open; blank selects "(default)".
func firestoreDatabase(databaseID string) string {
	if id := strings.TrimSpace(databaseID); id != "" {
		return id
	}
	return firestore.DefaultDatabaseID
}

// NewFirestoreClient opens the named Firestore database of a project. When
// FIRESTORE_EMULATOR_HOST is set the client library connects to the emulator
// instead, which is logged so a test setup is never mistaken for production.
func NewFirestoreClient(ctx context.Context, projectID, databaseID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	database := firestoreDatabase(databaseID)
	logCtx := slog.With("projectId", projectID, "database", database)
	if host := os.Getenv("FIRESTORE_EMULATOR_HOST"); host != "" {
		logCtx.Warn("Using the Firestore emulator.", "emulatorHost", host)
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client for database %s: %w", database, err)
	}

	logCtx.Info("Firestore client created.")
	return client, nil
}
