package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Log     LogConfig
	OCR     OCRConfig
	Models  ModelsConfig
	S3      S3Config
	Batch   BatchConfig
	Metrics MetricsConfig
}

// OCRProviderConfig holds settings for a single OCR provider. Fields a
// provider has no use for are ignored.
type OCRProviderConfig struct {
	Provider          string   `mapstructure:"provider"`
	APIKey            string   `mapstructure:"api_key"`
	Endpoint          string   `mapstructure:"endpoint"`
	Region            string   `mapstructure:"region"`
	AccessKey         string   `mapstructure:"access_key"`
	SecretKey         string   `mapstructure:"secret_key"`
	Languages         []string `mapstructure:"languages"`
	MaxRetries        int      `mapstructure:"max_retries"`
	TimeoutSecs       int      `mapstructure:"timeout_secs"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second"`
	PollIntervalMs    int      `mapstructure:"poll_interval_ms"`
	MaxPolls          int      `mapstructure:"max_polls"`
}

// OCRConfig holds the OCR provider set. Providers lists the enabled
// providers in invocation order.
type OCRConfig struct {
	Providers []string
	Textract  OCRProviderConfig `mapstructure:"textract"`
	Vision    OCRProviderConfig `mapstructure:"vision"`
	AzureRead OCRProviderConfig `mapstructure:"azure_read"`
	Tesseract OCRProviderConfig `mapstructure:"tesseract"`
}

// All returns every known provider config, in a stable order.
func (o *OCRConfig) All() []*OCRProviderConfig {
	return []*OCRProviderConfig{&o.Textract, &o.Vision, &o.AzureRead, &o.Tesseract}
}

// ModelProviderConfig holds settings for a single AI extraction model.
type ModelProviderConfig struct {
	Provider          string  `mapstructure:"provider"`
	APIKey            string  `mapstructure:"api_key"`
	DefaultModel      string  `mapstructure:"default_model"`
	Endpoint          string  `mapstructure:"endpoint"`
	MaxRetries        int     `mapstructure:"max_retries"`
	TimeoutSecs       int     `mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// ModelsConfig holds the AI extraction models. Enabled lists the models run
// in the ensemble, in invocation order.
type ModelsConfig struct {
	Enabled []string
	Claude  ModelProviderConfig `mapstructure:"claude"`
	Gemini  ModelProviderConfig `mapstructure:"gemini"`
	OpenAI  ModelProviderConfig `mapstructure:"openai"`
}

// All returns every known model config, in a stable order.
func (m *ModelsConfig) All() []*ModelProviderConfig {
	return []*ModelProviderConfig{&m.Claude, &m.Gemini, &m.OpenAI}
}

// S3Config holds AWS S3 settings for reading source documents.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// BatchConfig holds settings for processing several documents at once.
type BatchConfig struct {
	Concurrency    int `mapstructure:"concurrency"`
	DocTimeoutSecs int `mapstructure:"doc_timeout_secs"`
	MaxFileSizeMB  int `mapstructure:"max_file_size_mb"`
}

// MetricsConfig holds Prometheus textfile output settings.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from environment variables with the BILLSCAN_
// prefix. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BILLSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")

	v.SetDefault("ocr.providers", "textract,vision,azure_read")
	v.SetDefault("ocr.textract.provider", "textract")
	v.SetDefault("ocr.textract.region", "us-east-1")
	v.SetDefault("ocr.vision.provider", "vision")
	v.SetDefault("ocr.vision.endpoint", "https://vision.googleapis.com/v1/images:annotate")
	v.SetDefault("ocr.azure_read.provider", "azure_read")
	v.SetDefault("ocr.azure_read.poll_interval_ms", 1000)
	v.SetDefault("ocr.azure_read.max_polls", 30)
	v.SetDefault("ocr.tesseract.provider", "tesseract")
	v.SetDefault("ocr.tesseract.languages", "eng")
	for _, name := range []string{"textract", "vision", "azure_read", "tesseract"} {
		v.SetDefault("ocr."+name+".max_retries", 3)
		v.SetDefault("ocr."+name+".timeout_secs", 60)
		v.SetDefault("ocr."+name+".requests_per_second", 0)
	}

	v.SetDefault("models.enabled", "claude,gemini,openai")
	v.SetDefault("models.claude.provider", "claude")
	v.SetDefault("models.claude.default_model", "claude-sonnet-4-20250514")
	v.SetDefault("models.gemini.provider", "gemini")
	v.SetDefault("models.gemini.default_model", "gemini-2.0-flash")
	v.SetDefault("models.openai.provider", "openai")
	v.SetDefault("models.openai.default_model", "gpt-4o")
	for _, name := range []string{"claude", "gemini", "openai"} {
		v.SetDefault("models."+name+".max_retries", 3)
		v.SetDefault("models."+name+".timeout_secs", 120)
		v.SetDefault("models."+name+".requests_per_second", 0)
	}

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")

	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.doc_timeout_secs", 300)
	v.SetDefault("batch.max_file_size_mb", 50)

	v.SetDefault("metrics.textfile_path", "")

	// Bind environment variables explicitly for nested keys
	keys := []string{
		"log.level",
		"ocr.providers",
		"models.enabled",
		"s3.region", "s3.endpoint", "s3.access_key", "s3.secret_key",
		"batch.concurrency", "batch.doc_timeout_secs", "batch.max_file_size_mb",
		"metrics.textfile_path",
	}
	for _, name := range []string{"textract", "vision", "azure_read", "tesseract"} {
		for _, field := range []string{"api_key", "endpoint", "region", "access_key", "secret_key", "languages",
			"max_retries", "timeout_secs", "requests_per_second", "poll_interval_ms", "max_polls"} {
			keys = append(keys, "ocr."+name+"."+field)
		}
	}
	for _, name := range []string{"claude", "gemini", "openai"} {
		for _, field := range []string{"api_key", "default_model", "endpoint", "max_retries", "timeout_secs", "requests_per_second"} {
			keys = append(keys, "models."+name+"."+field)
		}
	}
	for _, key := range keys {
		_ = v.BindEnv(key, "BILLSCAN_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	cfg := &Config{}

	cfg.Log = LogConfig{Level: v.GetString("log.level")}

	cfg.OCR = OCRConfig{
		Providers: splitList(v.GetString("ocr.providers")),
		Textract:  loadOCRProvider(v, "textract"),
		Vision:    loadOCRProvider(v, "vision"),
		AzureRead: loadOCRProvider(v, "azure_read"),
		Tesseract: loadOCRProvider(v, "tesseract"),
	}

	cfg.Models = ModelsConfig{
		Enabled: splitList(v.GetString("models.enabled")),
		Claude:  loadModelProvider(v, "claude"),
		Gemini:  loadModelProvider(v, "gemini"),
		OpenAI:  loadModelProvider(v, "openai"),
	}

	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}

	cfg.Batch = BatchConfig{
		Concurrency:    v.GetInt("batch.concurrency"),
		DocTimeoutSecs: v.GetInt("batch.doc_timeout_secs"),
		MaxFileSizeMB:  v.GetInt("batch.max_file_size_mb"),
	}

	cfg.Metrics = MetricsConfig{TextfilePath: v.GetString("metrics.textfile_path")}

	return cfg, nil
}

func loadOCRProvider(v *viper.Viper, name string) OCRProviderConfig {
	prefix := "ocr." + name + "."
	provider := v.GetString(prefix + "provider")
	if provider == "" {
		provider = name
	}
	return OCRProviderConfig{
		Provider:          provider,
		APIKey:            v.GetString(prefix + "api_key"),
		Endpoint:          v.GetString(prefix + "endpoint"),
		Region:            v.GetString(prefix + "region"),
		AccessKey:         v.GetString(prefix + "access_key"),
		SecretKey:         v.GetString(prefix + "secret_key"),
		Languages:         splitList(v.GetString(prefix + "languages")),
		MaxRetries:        v.GetInt(prefix + "max_retries"),
		TimeoutSecs:       v.GetInt(prefix + "timeout_secs"),
		RequestsPerSecond: v.GetFloat64(prefix + "requests_per_second"),
		PollIntervalMs:    v.GetInt(prefix + "poll_interval_ms"),
		MaxPolls:          v.GetInt(prefix + "max_polls"),
	}
}

func loadModelProvider(v *viper.Viper, name string) ModelProviderConfig {
	prefix := "models." + name + "."
	provider := v.GetString(prefix + "provider")
	if provider == "" {
		provider = name
	}
	return ModelProviderConfig{
		Provider:          provider,
		APIKey:            v.GetString(prefix + "api_key"),
		DefaultModel:      v.GetString(prefix + "default_model"),
		Endpoint:          v.GetString(prefix + "endpoint"),
		MaxRetries:        v.GetInt(prefix + "max_retries"),
		TimeoutSecs:       v.GetInt(prefix + "timeout_secs"),
		RequestsPerSecond: v.GetFloat64(prefix + "requests_per_second"),
	}
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
