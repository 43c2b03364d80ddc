// Package kvsync wraps an external key-value store with a single
// reader-writer lock so that writes (Save, Delete, ClearAll) never overlap
// each other or any Fetch, while fetches run concurrently.
//
// Every write issues exactly one Synchronize on the store; ClearAll issues
// one for the whole sweep. Outcome messages are handed to a Logger after
// the lock is released, in the order the call produced them.
//
// Values cross a serialization boundary (see package codec). Fetch is
// generic over the expected type and treats a stored value of another
// shape the same as a missing key.
package kvsync
