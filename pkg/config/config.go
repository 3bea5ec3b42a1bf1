package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Embedding   EmbeddingConfig
	VectorStore VectorStoreConfig
	LLM         LLMConfig
	GigaChat    GigaChatConfig
	RAG         RAGConfig
	Cache       CacheConfig
	Corpus      CorpusConfig
	Prompts     PromptsConfig
	Logger      LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
}

// Enabled reports whether API routes require a bearer token.
func (c JWTConfig) Enabled() bool {
	return c.SecretKey != ""
}

type EmbeddingConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	BatchSize         int
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	Burst             int
}

type VectorStoreConfig struct {
	Backend    string // qdrant, postgres or memory
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

type LLMConfig struct {
	Provider    string // openai or gigachat
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
}

type RAGConfig struct {
	TopK            int
	ScoreThreshold  float64
	MultiQueryLimit int
}

type CacheConfig struct {
	Enabled       bool
	Backend       string // memory or redis
	Size          int
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ClearSchedule string
}

type CorpusConfig struct {
	Dir string
}

type PromptsConfig struct {
	TemplatesFile string
}

func Load() (*Config, error) {
	// .env is optional, plain environment variables work too (Docker/K8s)
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getSeconds("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getSeconds("SERVER_WRITE_TIMEOUT", 90),
		},
		Database: DatabaseConfig{
			Enabled:  getBool("DB_ENABLED", true),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "psi_rag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", ""),
			Expiration: time.Duration(getInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		},
		Embedding: EmbeddingConfig{
			BaseURL:           getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
			APIKey:            getEnv("EMBEDDING_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:             getEnv("EMBEDDING_MODEL", "text-embedding-ada-002"),
			BatchSize:         getInt("EMBEDDING_BATCH_SIZE", 10),
			Timeout:           getSeconds("EMBEDDING_TIMEOUT", 30),
			MaxRetries:        getInt("EMBEDDING_MAX_RETRIES", 0),
			RequestsPerSecond: getFloat("EMBEDDING_RPS", 0),
			Burst:             getInt("EMBEDDING_BURST", 1),
		},
		VectorStore: VectorStoreConfig{
			Backend:    getEnv("VECTOR_STORE", "qdrant"),
			URL:        getEnv("VECTOR_DB_URL", "http://localhost:6333"),
			APIKey:     getEnv("VECTOR_DB_API_KEY", ""),
			Collection: getEnv("COLLECTION_NAME", "knowledge_base"),
			Dimension:  getInt("VECTOR_SIZE", 1536),
			Timeout:    getMillis("VECTOR_DB_TIMEOUT_MS", 2000),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:       getEnv("LLM_MODEL", "gpt-3.5-turbo"),
			Temperature: getFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   getInt("LLM_MAX_TOKENS", 4000),
			Timeout:     getSeconds("LLM_TIMEOUT", 60),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: getBool("GIGACHAT_INSECURE_SKIP_VERIFY", false),
		},
		RAG: RAGConfig{
			TopK:            getInt("RAG_TOP_K", 3),
			ScoreThreshold:  getFloat("RAG_SCORE_THRESHOLD", 0.7),
			MultiQueryLimit: getInt("RAG_MULTI_QUERY_LIMIT", 3),
		},
		Cache: CacheConfig{
			Enabled:       getBool("CACHE_ENABLED", true),
			Backend:       getEnv("CACHE_BACKEND", "memory"),
			Size:          getInt("CACHE_SIZE", 0),
			TTL:           getSeconds("CACHE_TTL", 0),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getInt("REDIS_DB", 0),
			ClearSchedule: getEnv("CACHE_CLEAR_SCHEDULE", ""),
		},
		Corpus: CorpusConfig{
			Dir: getEnv("CORPUS_DIR", "data/knowledge"),
		},
		Prompts: PromptsConfig{
			TemplatesFile: getEnv("PROMPT_TEMPLATES_FILE", ""),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getInt(key, defaultValue)) * time.Second
}

func getMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getInt(key, defaultValue)) * time.Millisecond
}
