package embedding

import "fmt"

// ProviderConfig selects and configures a Provider.
type ProviderConfig struct {
	Provider   string
	Model      string
	Dimensions int
	APIKey     string
	BaseURL    string
}

// NewProvider creates the configured provider. Supported: "openai" (default), "mock".
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "mock":
		return NewMockProvider(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, mock)", cfg.Provider)
	}
}
