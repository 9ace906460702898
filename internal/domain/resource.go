package domain

import "errors"

// Errors returned by local node storage operations.
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrNotResponsible   = errors.New("node not responsible for the given key")
)

// Resource is a single stored data item.
//
//   - Key is the ring identifier produced by Space.Hash, used to route
//     and to index local storage.
//   - RawKey is the original opaque input the caller supplied to put/get,
//     kept for diagnostics and logging.
//   - Value is the codec-encoded payload (see internal/codec); storage
//     never sees the plaintext.
type Resource struct {
	Key    ID
	RawKey string
	Value  []byte
}
