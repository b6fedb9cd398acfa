package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to propwise! Let's configure the research assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Answer generator.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"groq", "openai", "openrouter", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	cfg.Model = GetPreset(cfg.Provider).Model

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: cfg.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 2. Embeddings.
	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{
			"huggingface — all-MiniLM-L6-v2 (384 dims)",
			"openai      — text-embedding-3-small (1536 dims)",
			"ollama      — nomic-embed-text (768 dims, local)",
		},
	}
	embedIdx, _, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding selection: %w", err)
	}
	embedders := []ProviderType{ProviderHuggingFace, ProviderOpenAI, ProviderOllama}
	cfg.EmbeddingProvider = embedders[embedIdx]
	preset := GetPreset(cfg.EmbeddingProvider)
	cfg.EmbeddingModel = preset.EmbeddingModel
	cfg.EmbeddingDimensions = preset.Dimensions

	// 3. Sampling temperature.
	tempPrompt := promptui.Prompt{
		Label:   "Sampling temperature (0-2)",
		Default: strconv.FormatFloat(cfg.Temperature, 'f', -1, 64),
		Validate: func(s string) error {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil || v < 0 || v > 2 {
				return fmt.Errorf("enter a number between 0 and 2")
			}
			return nil
		},
	}
	tempStr, err := tempPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("temperature: %w", err)
	}
	cfg.Temperature, _ = strconv.ParseFloat(strings.TrimSpace(tempStr), 64)

	// 4. Page loader.
	loaderPrompt := promptui.Select{
		Label: "How should pages be loaded?",
		Items: []string{
			"http    — plain HTTP fetch (fast)",
			"browser — headless Chrome (captures script-rendered content)",
		},
	}
	loaderIdx, _, err := loaderPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("loader selection: %w", err)
	}
	cfg.Loader.Mode = []LoaderMode{LoaderHTTP, LoaderBrowser}[loaderIdx]

	// 5. Storage location.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for the vector store",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	for _, p := range []ProviderType{cfg.Provider, cfg.EmbeddingProvider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment or .env before running propwise ingest.\n", envVar)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
