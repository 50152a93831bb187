// Package inference keeps a registry of language-model adapters so the
// concrete transport stays swappable behind ports.Inference.
package inference

import (
	"fmt"

	"SubmissionTagger/internal/ports"
)

// Provider pairs an adapter name with its implementation.
type Provider interface {
	Name() string
	ports.Inference
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(p Provider) {
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[p.Name()] = p
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("inference provider %s is not registered", name)
}
