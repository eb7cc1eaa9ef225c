package store

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/dirk.krummacker/central-contacts/pkg/model"
)

// ErrStorageUnavailable is returned by durable stores when the backing database could not complete
// a call. When Add fails with it the contact is normally not stored. The exception is a failure to
// read back the generated id after the row was written; the contact then shows up in later lists.
var ErrStorageUnavailable = errors.New("store: storage unavailable")

// ContactStore owns all contact records of the process.
type ContactStore interface {
	// ListAll returns every stored contact in insertion order. The result is never nil.
	ListAll(ctx context.Context) ([]model.Contact, error)

	// Add assigns a fresh id to the candidate, stores it and returns the complete contact. The id
	// of the candidate is ignored.
	Add(ctx context.Context, candidate model.Contact) (model.Contact, error)
}

// Seed enters initial contacts into the store. If the store already holds contacts then nothing is
// added, so that restarting against a durable store does not duplicate the initial data.
//
// The emptiness check and the inserts are not one transaction. Processes that start at the same time
// against the same empty database may each seed it.
func Seed(ctx context.Context, s ContactStore, contacts []model.Contact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}
	existing, err := s.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, contact := range contacts {
		if _, err := s.Add(ctx, contact); err != nil {
			return i, fmt.Errorf("seed contact %q: %w", contact.Name, err)
		}
	}
	return len(contacts), nil
}
