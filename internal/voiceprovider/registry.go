package voiceprovider

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry holds the registered voice providers and routes webhooks to
// them by path.
type Registry struct {
	providers map[ProviderType]Provider
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRegistry creates a new provider registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		providers: make(map[ProviderType]Provider),
		logger:    logger,
	}
}

// Register adds a provider to the registry, replacing any provider of the
// same type.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.GetName()
	r.providers[name] = provider
	r.logger.Info("registered voice provider", zap.String("provider", string(name)))
}

// Get retrieves a provider by type.
func (r *Registry) Get(providerType ProviderType) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[providerType]
	if !exists {
		return nil, fmt.Errorf("provider %s not registered", providerType)
	}
	return provider, nil
}

// GetByWebhookPath finds a provider by its webhook path.
func (r *Registry) GetByWebhookPath(path string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, provider := range r.providers {
		if provider.GetWebhookPath() == path {
			return provider, nil
		}
	}
	return nil, fmt.Errorf("no provider registered for webhook path: %s", path)
}

// WebhookPaths returns the webhook paths of all registered providers, sorted.
func (r *Registry) WebhookPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.providers))
	for _, provider := range r.providers {
		paths = append(paths, provider.GetWebhookPath())
	}
	sort.Strings(paths)
	return paths
}

// ProviderStatus represents the health status of a voice provider.
type ProviderStatus struct {
	Name    ProviderType `json:"name"`
	Webhook string       `json:"webhook"`
}

// HealthStatus returns one entry per registered provider, sorted by name.
func (r *Registry) HealthStatus() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]ProviderStatus, 0, len(r.providers))
	for providerType, provider := range r.providers {
		statuses = append(statuses, ProviderStatus{Name: providerType, Webhook: provider.GetWebhookPath()})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
