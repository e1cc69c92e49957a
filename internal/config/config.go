// Package config loads key definitions and runtime settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zarvd/token-signer/internal/key"
)

const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Keys               []Key         `yaml:"keys"`
	Cache              Cache         `yaml:"cache"`
	Rotation           Rotation      `yaml:"rotation"`
	MaxTokenExpiration time.Duration `yaml:"maxTokenExpiration"`

	// dir resolves relative file references.
	dir string
}

type Key struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secretFile"`
	PEMFile    string `yaml:"pemFile"`
	ID         string `yaml:"id"`
	Hash       string `yaml:"hash"`
	Mode       string `yaml:"mode"`
}

type Cache struct {
	Type  string `yaml:"type"`
	Redis Redis  `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Rotation struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Retain   int           `yaml:"retain"`
	// Type and Hash select the generated key, rsa and SHA256 by default.
	Type string `yaml:"type"`
	Hash string `yaml:"hash"`
}

// Load reads the file at path. Relative key files resolve against the
// directory containing it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes, defaults and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Cache.Type == "" {
		c.Cache.Type = CacheMemory
	}
	if c.Rotation.Interval == 0 {
		c.Rotation.Interval = 10 * time.Minute
	}
	if c.Rotation.Retain == 0 {
		c.Rotation.Retain = 10
	}
	if c.Rotation.Type == "" {
		c.Rotation.Type = "rsa"
	}
	if c.MaxTokenExpiration == 0 {
		c.MaxTokenExpiration = time.Hour
	}
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Keys) == 0 && !c.Rotation.Enabled {
		errs = append(errs, errors.New("at least one key is required unless rotation is enabled"))
	}
	for i, k := range c.Keys {
		if err := k.validate(); err != nil {
			errs = append(errs, fmt.Errorf("keys[%d]: %w", i, err))
		}
	}

	switch c.Cache.Type {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}

	if c.Rotation.Enabled {
		if _, err := c.Rotation.generator(); err != nil {
			errs = append(errs, fmt.Errorf("rotation: %w", err))
		}
		if c.Rotation.Interval < 0 || c.Rotation.Retain < 0 {
			errs = append(errs, errors.New("rotation: interval and retain must not be negative"))
		}
	}
	if c.MaxTokenExpiration < 0 {
		errs = append(errs, errors.New("maxTokenExpiration must not be negative"))
	}
	return errors.Join(errs...)
}

func (k Key) validate() error {
	alg, err := key.ParseAlgorithm(k.Type)
	if err != nil {
		return err
	}
	if _, err := k.hash(); err != nil {
		return err
	}
	if _, err := key.ParseMode(k.Mode); err != nil {
		return err
	}

	switch alg {
	case key.AlgorithmHMAC:
		if (k.Secret == "") == (k.SecretFile == "") {
			return errors.New("exactly one of secret and secretFile is required")
		}
		if k.PEMFile != "" || k.ID != "" {
			return errors.New("pemFile and id are not supported for hmac keys")
		}
	default:
		if k.PEMFile == "" {
			return errors.New("pemFile is required")
		}
		if k.Secret != "" || k.SecretFile != "" {
			return fmt.Errorf("secret is not supported for %s keys", alg)
		}
	}
	return nil
}

func (k Key) hash() (key.HashAlgorithm, error) {
	if k.Hash == "" {
		return key.SHA256, nil
	}
	return key.ParseHashAlgorithm(k.Hash)
}

// Definitions builds the configured keys in file order.
func (c *Config) Definitions() ([]key.Definition, error) {
	defs := make([]key.Definition, 0, len(c.Keys))
	for i, k := range c.Keys {
		def, err := c.definition(k)
		if err != nil {
			return nil, fmt.Errorf("keys[%d]: %w", i, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (c *Config) definition(k Key) (key.Definition, error) {
	alg, err := key.ParseAlgorithm(k.Type)
	if err != nil {
		return key.Definition{}, err
	}
	hash, err := k.hash()
	if err != nil {
		return key.Definition{}, err
	}
	mode, err := key.ParseMode(k.Mode)
	if err != nil {
		return key.Definition{}, err
	}

	var signingKey key.SigningKey
	switch alg {
	case key.AlgorithmHMAC:
		secret := []byte(k.Secret)
		if k.SecretFile != "" {
			b, err := os.ReadFile(c.resolve(k.SecretFile))
			if err != nil {
				return key.Definition{}, fmt.Errorf("failed to read secret: %w", err)
			}
			secret = bytes.TrimRight(b, "\r\n")
		}
		signingKey, err = key.NewHMACKey(secret, hash)
	default:
		var p []byte
		p, err = os.ReadFile(c.resolve(k.PEMFile))
		if err != nil {
			return key.Definition{}, fmt.Errorf("failed to read key: %w", err)
		}
		var opts []key.Option
		if k.ID != "" {
			opts = append(opts, key.WithID(k.ID))
		}
		signingKey, err = key.FromPEM(alg, p, hash, opts...)
	}
	if err != nil {
		return key.Definition{}, err
	}

	return key.Definition{
		Name: k.Name,
		Key:  signingKey,
		Mode: mode,
	}, nil
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// RotatorConfig translates the rotation settings.
func (c *Config) RotatorConfig() (key.RotatorConfig, error) {
	generator, err := c.Rotation.generator()
	if err != nil {
		return key.RotatorConfig{}, err
	}
	return key.RotatorConfig{
		Interval:  c.Rotation.Interval,
		Retain:    c.Rotation.Retain,
		Generator: generator,
	}, nil
}

func (r Rotation) generator() (key.Generator, error) {
	hash := key.SHA256
	if r.Hash != "" {
		var err error
		if hash, err = key.ParseHashAlgorithm(r.Hash); err != nil {
			return nil, err
		}
	}
	alg, err := key.ParseAlgorithm(r.Type)
	if err != nil {
		return nil, err
	}
	switch alg {
	case key.AlgorithmRSA:
		return key.RSAGenerator(hash), nil
	case key.AlgorithmEllipticCurve:
		return key.ECGenerator(hash), nil
	default:
		return nil, fmt.Errorf("%w: %s keys cannot be generated", key.ErrUnsupportedAlgorithm, strings.ToLower(alg.String()))
	}
}
