package cmd

import (
	"context"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bidwise/rfp-analyzer/internal/ai"
	"github.com/bidwise/rfp-analyzer/internal/ai/azopenai"
	"github.com/bidwise/rfp-analyzer/internal/ai/gemini"
	"github.com/bidwise/rfp-analyzer/internal/apperr"
	"github.com/bidwise/rfp-analyzer/internal/compare"
	"github.com/bidwise/rfp-analyzer/internal/extract"
	"github.com/bidwise/rfp-analyzer/internal/pipeline"
	"github.com/bidwise/rfp-analyzer/internal/secrets"
)

const (
	app = "rfp-analyzer"

	providerGemini = "gemini"
	providerOpenAI = "openai"
)

type Config struct {
	Storage   *StorageConfig   `mapstructure:"storage"`
	Chunking  *ChunkingConfig  `mapstructure:"chunking"`
	Retrieval *RetrievalConfig `mapstructure:"retrieval"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type StorageConfig struct {
	Root string `mapstructure:"root"`
}

type ChunkingConfig struct {
	MaxSize int `mapstructure:"max-size"`
	Overlap int `mapstructure:"overlap"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top-k"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "rfp-analyzer compares a proposal against the eligibility criteria of an RFP",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is rfp-analyzer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for analyze and serve commands now. If there is no
	// config, we can skip initialization
	if analyzeCmd.CalledAs() == "" && serveCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// buildServices validates the AI configuration and constructs the embedding
// and completion services before any document work begins.
func buildServices(ctx context.Context, config *Config, logger *zap.Logger) (ai.Embedder, ai.Completer, error) {
	if config == nil || config.AI == nil {
		return nil, nil, apperr.Configf("ai configuration is required")
	}

	switch strings.TrimSpace(config.AI.Provider) {
	case providerGemini:
		if config.AI.Gemini == nil {
			return nil, nil, apperr.Configf("gemini configuration is required when provider is %q", providerGemini)
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: config.AI.Gemini.APIKey,
			File:  config.AI.Gemini.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, nil, apperr.Configf("loading gemini api key: %v", err)
		}

		generator, err := gemini.NewGenerator(ctx, gemini.Config{
			APIKey:         apiKey,
			Model:          config.AI.Gemini.Model,
			EmbeddingModel: config.AI.Gemini.EmbeddingModel,
			MaxRetries:     config.AI.Gemini.MaxRetries,
		}, logger)
		if err != nil {
			return nil, nil, apperr.Configf("creating gemini client: %v", err)
		}

		return generator, generator, nil

	case providerOpenAI:
		if config.AI.OpenAI == nil {
			return nil, nil, apperr.Configf("openai configuration is required when provider is %q", providerOpenAI)
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: config.AI.OpenAI.APIKey,
			File:  config.AI.OpenAI.APIKeyFile,
			Env:   "AZURE_OPENAI_API_KEY",
		})
		if err != nil {
			return nil, nil, apperr.Configf("loading openai api key: %v", err)
		}

		client, err := azopenai.NewClient(azopenai.Config{
			APIKey:         apiKey,
			Endpoint:       config.AI.OpenAI.Endpoint,
			Model:          config.AI.OpenAI.Model,
			EmbeddingModel: config.AI.OpenAI.EmbeddingModel,
		})
		if err != nil {
			return nil, nil, apperr.Configf("creating openai client: %v", err)
		}

		return client, client, nil

	default:
		return nil, nil, apperr.Configf("unsupported ai provider %q", config.AI.Provider)
	}
}

// buildPipeline wires the whole comparison pipeline from the configuration.
func buildPipeline(ctx context.Context, config *Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	embedder, completer, err := buildServices(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	maxLogLength := 0
	if config.AI != nil {
		maxLogLength = config.AI.MaxLogLength
	}

	cfg := pipeline.Config{}
	if config.Chunking != nil {
		cfg.MaxChunkSize = config.Chunking.MaxSize
		cfg.ChunkOverlap = config.Chunking.Overlap
	}
	if config.Retrieval != nil {
		cfg.TopK = config.Retrieval.TopK
	}
	if config.Storage != nil {
		cfg.StorageRoot = config.Storage.Root
	}

	extractor := extract.New(completer, logger, maxLogLength)
	comparator := compare.New(completer, logger, maxLogLength)

	return pipeline.New(embedder, extractor, comparator, cfg, logger), nil
}
