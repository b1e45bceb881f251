package classifier

import (
	"fmt"

	"github.com/hilthontt/civicreport/internal/domain"
)

// New returns the classifier for provider, or nil for "none" so that
// every submission falls back to the default priority.
func New(provider, apiKey, model, baseURL string) (domain.Classifier, error) {
	switch provider {
	case "", "none":
		return nil, nil
	case "anthropic":
		c, err := NewAnthropic(apiKey, model, baseURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "openai":
		if model == DefaultAnthropicModel {
			model = ""
		}
		c, err := NewOpenAI(apiKey, model, baseURL, nil)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported classifier provider %q", provider)
}
