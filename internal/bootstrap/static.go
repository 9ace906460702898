package bootstrap

import "context"

// Static is a fixed, configuration-supplied list of bootstrap node
// identifiers (hexadecimal, matching domain.ID.String()).
type Static struct {
	ids []string
}

// NewStatic builds a Static source from the given identifiers.
func NewStatic(ids []string) *Static {
	return &Static{ids: ids}
}

// Discover returns the configured list of identifiers.
func (s *Static) Discover(ctx context.Context) ([]string, error) {
	return s.ids, nil
}
