// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	RAG           RAGConfig           `mapstructure:"rag"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
// Dimensions 必须与 Elasticsearch 索引的向量维度一致，不一致属于配置错误。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RAGConfig 配置检索增强生成的核心参数。
type RAGConfig struct {
	ChunkSize      int             `mapstructure:"chunk_size"`
	MatchThreshold float64         `mapstructure:"match_threshold"`
	MatchCount     int             `mapstructure:"match_count"`
	HistoryLimit   int             `mapstructure:"history_limit"`
	UserDocLimit   int             `mapstructure:"user_doc_limit"`
	Prompt         RAGPromptConfig `mapstructure:"prompt"`
}

// RAGPromptConfig 配置系统提示的各个文案片段。
type RAGPromptConfig struct {
	Rules        string `mapstructure:"rules"`
	RefStart     string `mapstructure:"ref_start"`
	RefEnd       string `mapstructure:"ref_end"`
	NoResultText string `mapstructure:"no_result_text"`
	RagOffText   string `mapstructure:"rag_off_text"`
	NoDocsText   string `mapstructure:"no_docs_text"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	applyDefaults(&Conf)
}

// applyDefaults 为未配置的 RAG 参数填充默认值。
func applyDefaults(c *Config) {
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.MatchThreshold <= 0 {
		c.RAG.MatchThreshold = 0.3
	}
	if c.RAG.MatchCount <= 0 {
		c.RAG.MatchCount = 5
	}
	if c.RAG.HistoryLimit <= 0 {
		c.RAG.HistoryLimit = 10
	}
	if c.RAG.UserDocLimit <= 0 {
		c.RAG.UserDocLimit = 100
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.RAG.Prompt.Rules == "" {
		c.RAG.Prompt.Rules = "你是一个知识库问答助手。请严格依据下方参考内容回答用户问题，不要使用参考内容之外的知识。如果参考内容不足以回答，请如实说明。"
	}
	if c.RAG.Prompt.RefStart == "" {
		c.RAG.Prompt.RefStart = "===== 参考内容开始 ====="
	}
	if c.RAG.Prompt.RefEnd == "" {
		c.RAG.Prompt.RefEnd = "===== 参考内容结束 ====="
	}
	if c.RAG.Prompt.NoResultText == "" {
		c.RAG.Prompt.NoResultText = "抱歉，知识库中没有找到与您的问题相关的内容。"
	}
	if c.RAG.Prompt.RagOffText == "" {
		c.RAG.Prompt.RagOffText = "当前会话未启用知识库检索，请基于你的通用知识回答用户问题。"
	}
	if c.RAG.Prompt.NoDocsText == "" {
		c.RAG.Prompt.NoDocsText = "用户尚未上传任何可检索的文档，请基于通用知识回答，并提醒用户可以上传文档以获得基于知识库的回答。"
	}
}
