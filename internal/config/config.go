package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const defaultQuota = 15 << 30

type Config struct {
	Listen          string `yaml:"listen"`
	DSN             string `yaml:"db_dsn"`
	BlobBackend     string `yaml:"blobBackend"`
	BlobRoot        string `yaml:"blobRoot"`
	BucketName      string `yaml:"bucketName"`
	Region          string `yaml:"region"`
	EndpointURL     string `yaml:"endpointUrl"`
	AccessKeyID     string `yaml:"accessKeyId"`
	AccessKeySecret string `yaml:"accessKeySecret"`
	ForcePathStyle  bool   `yaml:"forcePathStyle"`
	PublicBaseURL   string `yaml:"publicBaseUrl"`
	Quota           uint64 `yaml:"quota"`
	PinCost         int    `yaml:"pinCost"`
	ShareRate       int    `yaml:"shareRate"`
	UploadLimit     string `yaml:"uploadLimit"`
	LogLevel        string `yaml:"logLevel"`
	LogFormat       string `yaml:"logFormat"`
}

func defaults() Config {
	return Config{
		Listen:      ":8000",
		BlobBackend: "s3",
		BlobRoot:    "uploads",
		Quota:       defaultQuota,
		ShareRate:   60,
		UploadLimit: "100M",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load reads the optional YAML file at path and then applies environment overrides.
func Load(path string) (Config, error) {
	conf := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return conf, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &conf); err != nil {
			return conf, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := conf.applyEnv(os.LookupEnv); err != nil {
		return conf, err
	}
	return conf, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"listen":          &c.Listen,
		"db_dsn":          &c.DSN,
		"blobBackend":     &c.BlobBackend,
		"blobRoot":        &c.BlobRoot,
		"bucketName":      &c.BucketName,
		"region":          &c.Region,
		"endpointUrl":     &c.EndpointURL,
		"accessKeyId":     &c.AccessKeyID,
		"accessKeySecret": &c.AccessKeySecret,
		"publicBaseUrl":   &c.PublicBaseURL,
		"logLevel":        &c.LogLevel,
		"logFormat":       &c.LogFormat,
		"uploadLimit":     &c.UploadLimit,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("forcePathStyle"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("forcePathStyle: %w", err)
		}
		c.ForcePathStyle = b
	}
	if v, ok := lookup("quota"); ok && v != "" {
		q, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("quota: %w", err)
		}
		c.Quota = q
	}
	if v, ok := lookup("pinCost"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("pinCost: %w", err)
		}
		c.PinCost = n
	}
	if v, ok := lookup("shareRate"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("shareRate: %w", err)
		}
		c.ShareRate = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.DSN == "" {
		return errors.New("db_dsn is required")
	}
	switch c.BlobBackend {
	case "s3":
		if c.BucketName == "" {
			return errors.New("bucketName is required for the s3 backend")
		}
	case "fs":
		if c.BlobRoot == "" {
			return errors.New("blobRoot is required for the fs backend")
		}
	default:
		return fmt.Errorf("unknown blobBackend %q", c.BlobBackend)
	}
	return nil
}
