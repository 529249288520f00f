package gateway

import "google.golang.org/genai"

// GenerationConfig holds the fixed model parameters. Backends copy what they
// need at construction time and never modify it.
type GenerationConfig struct {
	MaxOutputTokens int32
	Temperature     float64
	HarmCategories  []genai.HarmCategory
	BlockThreshold  genai.HarmBlockThreshold
}

// DefaultGenerationConfig disables content blocking for every standard harm category.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxOutputTokens: 2048,
		Temperature:     0.4,
		HarmCategories: []genai.HarmCategory{
			genai.HarmCategoryHarassment,
			genai.HarmCategoryHateSpeech,
			genai.HarmCategorySexuallyExplicit,
			genai.HarmCategoryDangerousContent,
		},
		BlockThreshold: genai.HarmBlockThresholdBlockNone,
	}
}

func (c GenerationConfig) safetySettings() []*genai.SafetySetting {
	settings := make([]*genai.SafetySetting, 0, len(c.HarmCategories))
	for _, category := range c.HarmCategories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: c.BlockThreshold,
		})
	}
	return settings
}
