// Package providers defines the narrow seams between the lifecycle
// engines and the cloud. Each engine takes only the capability it
// needs: the poller a Describer, the cleanup engine a Lister and a
// Deleter.
package providers

import (
	"context"
	"fmt"

	"github.com/verdin/sagecycle/types"
)

// Lister enumerates resources of one type, already converted to the
// canonical Resource shape with statuses mapped.
type Lister interface {
	List(ctx context.Context, filter types.ResourceFilter) ([]types.Resource, error)
}

// Describer reports the raw provider status of a single resource. The
// poller maps it to a canonical status itself.
type Describer interface {
	Describe(ctx context.Context, id string) (string, error)
}

// Deleter removes a single resource by identifier. For resource kinds
// the provider cannot delete, implementations substitute the closest
// terminal action (stopping a training job).
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Provider hands out per-resource-type capabilities.
type Provider interface {
	Name() string
	Region() string
	Lister(rt types.ResourceType) (Lister, error)
	Describer(rt types.ResourceType) (Describer, error)
	Deleter(rt types.ResourceType) (Deleter, error)
}

// Config holds what a provider needs at construction.
type Config struct {
	Region        string
	Project       string
	DataBucket    string
	ReleaseBucket string
}

// Factory creates a provider instance.
type Factory func(ctx context.Context, cfg Config) (Provider, error)

var registry = make(map[string]Factory)

// Register adds a provider factory under a name. Called from provider
// package init functions.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// Get creates a provider instance by name.
func Get(ctx context.Context, name string, cfg Config) (Provider, error) {
	factory, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}
	return factory(ctx, cfg)
}

// Names returns the registered provider names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
