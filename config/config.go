package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	PostgresDSN string
	ListenAddr  string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	Embeddings EmbeddingsConfig
	LLM        LLMConfig
	Corpus     CorpusConfig
	History    HistoryConfig
	Logging    LoggingConfig

	// ProjectPaths maps a project name shown to the user onto the folder
	// holding that project's tracked documents.
	ProjectPaths      map[string]string
	KnowledgeBasePath string
}

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider   string
	Model      string
	TimeoutSec int
}

type CorpusConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	RetrieverK       int
	MaxContextTokens int
}

type HistoryConfig struct {
	// Window is the number of most recent turns (user and assistant
	// counted separately) replayed into rewrite and synthesis. Older
	// turns stay in storage for audit only.
	Window int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (Config, error) {
	// Optional; real deployments set env directly.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/docbot")

	v.SetEnvPrefix("DOCBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		PostgresDSN:   v.GetString("postgres.dsn"),
		ListenAddr:    v.GetString("server.listen"),
		OllamaHost:    v.GetString("ollama.host"),
		OpenAIAPIKey:  v.GetString("openai.api_key"),
		OpenAIBaseURL: v.GetString("openai.base_url"),
		Embeddings: EmbeddingsConfig{
			Provider:  v.GetString("embeddings.provider"),
			Model:     v.GetString("embeddings.model"),
			Dimension: v.GetInt("embeddings.dimension"),
		},
		LLM: LLMConfig{
			Provider:   v.GetString("llm.provider"),
			Model:      v.GetString("llm.model"),
			TimeoutSec: v.GetInt("llm.timeout_sec"),
		},
		Corpus: CorpusConfig{
			ChunkSize:        v.GetInt("corpus.chunk_size"),
			ChunkOverlap:     v.GetInt("corpus.chunk_overlap"),
			RetrieverK:       v.GetInt("corpus.retriever_k"),
			MaxContextTokens: v.GetInt("corpus.max_context_tokens"),
		},
		History: HistoryConfig{
			Window: v.GetInt("history.window"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		ProjectPaths:      v.GetStringMapString("projects"),
		KnowledgeBasePath: v.GetString("knowledge_base.path"),
	}

	if cfg.Embeddings.Provider == ProviderOpenAI || cfg.LLM.Provider == ProviderOpenAI {
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("openai provider selected but DOCBOT_OPENAI_API_KEY not set")
		}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("postgres.dsn", "postgres://localhost:5432/docbot?sslmode=disable")
	v.SetDefault("server.listen", ":8080")

	v.SetDefault("ollama.host", "http://localhost:11434")

	v.SetDefault("embeddings.provider", ProviderOpenAI)
	v.SetDefault("embeddings.model", "text-embedding-3-small")
	v.SetDefault("embeddings.dimension", 1536)

	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout_sec", 60)

	v.SetDefault("corpus.chunk_size", 1000)
	v.SetDefault("corpus.chunk_overlap", 100)
	v.SetDefault("corpus.retriever_k", 5)
	v.SetDefault("corpus.max_context_tokens", 128000)

	v.SetDefault("history.window", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
