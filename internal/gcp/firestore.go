package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// NewFirestoreClient opens the job site database. An empty databaseID or
// "(default)" selects the project's default database.
func NewFirestoreClient(ctx context.Context, projectID, databaseID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	var client *firestore.Client
	var err error
	if databaseID = DatabaseID(databaseID); databaseID == firestore.DefaultDatabaseID {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client for database %s: %w", databaseID, err)
	}
	return client, nil
}

// DatabaseID normalises a configured database name.
func DatabaseID(configured string) string {
	if configured == "" {
		return firestore.DefaultDatabaseID
	}
	return configured
}
