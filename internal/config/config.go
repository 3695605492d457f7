package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selectors for the artifact store.
const (
	BackendMinio = "minio"
	BackendFS    = "fs"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	// Auth maps reviewer names to API keys. Empty map disables auth.
	Auth struct {
		Keys map[string]string `yaml:"keys"`
	} `yaml:"auth"`

	RateLimit struct {
		Enabled    bool `yaml:"enabled"`
		Capacity   int  `yaml:"capacity"`
		RefillRate int  `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`

	Storage struct {
		Backend        string `yaml:"backend"`
		PDFSuffix      string `yaml:"pdfSuffix"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`

		Prefixes struct {
			PDF        string `yaml:"pdf"`
			OCR        string `yaml:"ocr"`
			Indicators string `yaml:"indicators"`
			Annotated  string `yaml:"annotated"`
		} `yaml:"prefixes"`

		FS struct {
			Root string `yaml:"root"`
		} `yaml:"fs"`

		Minio struct {
			Endpoint   string `yaml:"endpoint"`
			AccessKey  string `yaml:"accessKey"`
			SecretKey  string `yaml:"secretKey"`
			BucketName string `yaml:"bucketName"`
			Region     string `yaml:"region"`
			UseSSL     bool   `yaml:"useSSL"`
		} `yaml:"minio"`
	} `yaml:"storage"`

	Staging struct {
		Dir       string `yaml:"dir"`
		Workers   int    `yaml:"workers"`
		QueueSize int    `yaml:"queueSize"`
	} `yaml:"staging"`
}

// Load reads the yaml config file, expands ${VAR} references in the minio
// fields from the environment, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	m := &cfg.Storage.Minio
	m.Endpoint = os.ExpandEnv(m.Endpoint)
	m.AccessKey = os.ExpandEnv(m.AccessKey)
	m.SecretKey = os.ExpandEnv(m.SecretKey)
	m.BucketName = os.ExpandEnv(m.BucketName)
	m.Region = os.ExpandEnv(m.Region)

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMinio
	}
	if c.Storage.PDFSuffix == "" {
		c.Storage.PDFSuffix = ".PDF"
	}
	if c.Storage.TimeoutSeconds == 0 {
		c.Storage.TimeoutSeconds = 30
	}
	p := &c.Storage.Prefixes
	if p.PDF == "" {
		p.PDF = "pdf/"
	}
	if p.OCR == "" {
		p.OCR = "ocr/"
	}
	if p.Indicators == "" {
		p.Indicators = "pi/"
	}
	if p.Annotated == "" {
		p.Annotated = "pi_annotated/"
	}
	if c.Staging.Dir == "" {
		c.Staging.Dir = "temp_downloads"
	}
	if c.Staging.Workers == 0 {
		c.Staging.Workers = 2
	}
	if c.Staging.QueueSize == 0 {
		c.Staging.QueueSize = 64
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 20
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 10
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendMinio:
		if c.Storage.Minio.Endpoint == "" {
			return fmt.Errorf("storage.minio.endpoint is required for the minio backend")
		}
		if c.Storage.Minio.BucketName == "" {
			return fmt.Errorf("storage.minio.bucketName is required for the minio backend")
		}
	case BackendFS:
		if c.Storage.FS.Root == "" {
			return fmt.Errorf("storage.fs.root is required for the fs backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}
	return nil
}

// StoreTimeout bounds every call into the backing store.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Storage.TimeoutSeconds) * time.Second
}
