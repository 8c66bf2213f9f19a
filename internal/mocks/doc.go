// Package mocks holds test doubles for the store and auth interfaces.
//
// Store mocks keep an in-memory map and expose one function field per method;
// setting a field overrides the in-memory behaviour for that call:
//
//	tasks := mocks.NewMockTaskStore()
//	tasks.SoftDeleteFn = func(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
//	    return store.ErrTaskNotFound
//	}
//
// TestifyMockTokenStore is the exception: it embeds testify's mock.Mock for
// tests that assert on call arguments and counts.
package mocks
