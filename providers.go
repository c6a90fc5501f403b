package tempmail

import "github.com/tempmail-sdk/client-go/internal/provider"

// ProviderInfo is the display metadata of a provider.
type ProviderInfo = provider.Info

// ListProviders returns every supported provider in a stable order.
func ListProviders() []ProviderInfo {
	ids := provider.IDs()
	out := make([]ProviderInfo, 0, len(ids))
	for _, id := range ids {
		if info, ok := provider.Describe(id); ok {
			out = append(out, info)
		}
	}
	return out
}

// GetProviderInfo returns the metadata for id.
func GetProviderInfo(id ProviderID) (ProviderInfo, bool) {
	return provider.Describe(id)
}
