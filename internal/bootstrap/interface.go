// Package bootstrap supplies a Network with the initial set of ring
// members to contact when a new node joins, decoupling ring membership
// discovery from the routing protocol itself.
package bootstrap

import "context"

// Source returns the identifiers of nodes already participating in the
// ring, used by Network.InsertNode to locate an entry point for a joining
// node. An empty result is not an error: it means "start a new ring".
type Source interface {
	Discover(ctx context.Context) ([]string, error)
}
