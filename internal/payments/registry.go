package payments

import (
	"fmt"
	"strings"

	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
)

// DefaultProviderName selects the gateway used when a request does not name one.
const DefaultProviderName = "adwa"

// Registry resolves payment providers by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes the given providers by their Name().
func NewRegistry(providers ...Provider) (*Registry, error) {
	indexed := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(p.Name()))
		if name == "" {
			return nil, fmt.Errorf("payment provider with empty name")
		}
		if _, exists := indexed[name]; exists {
			return nil, fmt.Errorf("duplicate payment provider %q", name)
		}
		indexed[name] = p
	}
	return &Registry{providers: indexed}, nil
}

// Get returns the named provider, falling back to the default when name is empty.
func (r *Registry) Get(name string) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultProviderName
	}
	provider, ok := r.providers[key]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment provider %q", key))
	}
	return provider, nil
}

// Has reports whether a provider is registered under the given name.
func (r *Registry) Has(name string) bool {
	_, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
