// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

package cli

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gitlab.com/yawning/rijndael.git"
)

// Config holds the CLI configuration, either from flags or a YAML profile.
type Config struct {
	// ConfigFile is the path to the YAML profile.
	ConfigFile string `yaml:"-"`

	// Key is the hex encoded key.
	Key string `yaml:"key"`

	// KeySize is the key size in bits (128, 192, 256).
	KeySize int `yaml:"key_size"`

	// IV is the hex encoded initialization vector.
	IV string `yaml:"iv"`

	// CBC enables cipher block chaining.
	CBC bool `yaml:"cbc"`

	// Padding enables length padding.
	Padding bool `yaml:"padding"`

	// KeyPadding zero-extends short keys.
	KeyPadding bool `yaml:"key_padding"`

	// Text treats encrypt input and decrypt output as raw text, not hex.
	Text bool `yaml:"text"`

	// Verbose dumps the trace of every step.
	Verbose bool `yaml:"verbose"`

	// Accelerated allows the hardware backed block core for untraced
	// 128 bit keys.
	Accelerated bool `yaml:"accelerated"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		KeySize:    128,
		CBC:        true,
		Padding:    true,
		KeyPadding: true,
	}
}

// LoadProfile reads a YAML profile.  Fields absent from the file keep the
// defaults of NewConfig.
func LoadProfile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	cfg := NewConfig()
	if err = yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	cfg.ConfigFile = path

	return cfg, nil
}

// CipherConfig converts the CLI configuration into a key and a library
// configuration.
func (c *Config) CipherConfig(obs rijndael.Observer) ([]byte, *rijndael.Config, error) {
	if c.Key == "" {
		return nil, nil, fmt.Errorf("no key specified")
	}
	key, err := hex.DecodeString(c.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding key: %w", err)
	}

	var iv []byte
	if c.IV != "" {
		if iv, err = hex.DecodeString(c.IV); err != nil {
			return nil, nil, fmt.Errorf("decoding iv: %w", err)
		}
	}

	switch rijndael.KeySize(c.KeySize) {
	case rijndael.KeySize128, rijndael.KeySize192, rijndael.KeySize256:
	default:
		return nil, nil, fmt.Errorf("%w: %d", rijndael.ErrInvalidKeySize, c.KeySize)
	}

	return key, &rijndael.Config{
		KeySize:         rijndael.KeySize(c.KeySize),
		Chaining:        c.CBC,
		Padding:         c.Padding,
		AllowKeyPadding: c.KeyPadding,
		IV:              iv,
		Trace:           c.Verbose,
		Observer:        obs,
		Accelerated:     c.Accelerated,
	}, nil
}
