// Package storage defines local node storage: the durable-within-process
// key/value map each node keeps for the resources it is responsible for.
package storage

import "chorddht/internal/domain"

// Storage is the minimal set of operations a node needs from its local
// store. Values are codec-encoded bytes; storage never interprets them.
type Storage interface {
	// Put inserts or overwrites the resource indexed by its Key. A
	// duplicate put silently overwrites the previous value (see
	// DESIGN.md's resolution of the corresponding open question).
	Put(resource domain.Resource)

	// Get retrieves the resource stored under id, or
	// domain.ErrResourceNotFound.
	Get(id domain.ID) (domain.Resource, error)

	// Delete removes the resource stored under id, or returns
	// domain.ErrResourceNotFound.
	Delete(id domain.ID) error

	// Between returns every resource with key k such that k.Between(from, to).
	Between(from, to domain.ID) []domain.Resource

	// All returns a snapshot of every resource currently stored.
	All() []domain.Resource
}
