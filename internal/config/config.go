// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads run settings from a YAML file with environment
// overrides and validates the required keys before a run starts.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/slidelock/internal/secrets"
	"github.com/pdiddy/slidelock/pkg/types"
)

// Setting keys as they appear in the config file.
const (
	KeySourceDir        = "source_dir"
	KeyDistDir          = "dist_dir"
	KeyOwnerPassword    = "owner_password"
	KeyConverterPath    = "converter_path"
	KeyExtensions       = "extensions"
	KeyConverterTimeout = "converter_timeout"
	KeyClamdAddress     = "clamd_address"
	KeyStrict           = "strict"
)

const (
	// DefaultFile is the config file read from the working directory.
	DefaultFile = "config.yaml"

	// DefaultConverter is the LibreOffice binary, resolved on PATH.
	DefaultConverter = "soffice"

	// EnvPrefix prefixes environment overrides, e.g. SLIDELOCK_DIST_DIR.
	EnvPrefix = "SLIDELOCK"
)

// DefaultExtensions lists the presentation suffixes converted when the
// config file names none.
var DefaultExtensions = []string{".pptx"}

var allKeys = []string{
	KeySourceDir, KeyDistDir, KeyOwnerPassword, KeyConverterPath,
	KeyExtensions, KeyConverterTimeout, KeyClamdAddress, KeyStrict,
}

// ErrConfig marks every error caused by a missing, malformed, or
// incomplete configuration.
var ErrConfig = errors.New("configuration error")

// Config is a read-only view over the loaded settings.
type Config struct {
	v *viper.Viper
}

// Load reads the YAML file at path. Environment variables with EnvPrefix
// override file values. If owner_password is set in neither, the
// owner-password entry of fallback (usually the loaded secrets) is used.
// A missing or malformed file is an ErrConfig.
func Load(path string, fallback map[string]string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, k := range allKeys {
		// BindEnv only errors on an empty key list.
		_ = v.BindEnv(k)
	}

	v.SetDefault(KeyConverterPath, DefaultConverter)
	v.SetDefault(KeyExtensions, DefaultExtensions)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrConfig, path, err)
	}

	if !v.IsSet(KeyOwnerPassword) {
		if pw, ok := fallback[secrets.OwnerPassword]; ok {
			v.Set(KeyOwnerPassword, pw)
		}
	}

	return &Config{v: v}, nil
}

// File returns the path of the config file that was read.
func (c *Config) File() string {
	return c.v.ConfigFileUsed()
}

// Get returns the string value for key and whether the key is set at all.
// Absent keys yield ("", false).
func (c *Config) Get(key string) (string, bool) {
	if !c.v.IsSet(key) {
		return "", false
	}
	return c.v.GetString(key), true
}

// Settings decodes the configuration into a typed record and checks that
// every required key is present. The error names each offending key.
func (c *Config) Settings() (types.Settings, error) {
	var s types.Settings
	if err := c.v.Unmarshal(&s); err != nil {
		return types.Settings{}, fmt.Errorf("%w: decoding %s: %w", ErrConfig, c.File(), err)
	}
	exts := make([]string, 0, len(s.Extensions))
	for _, ext := range s.Extensions {
		exts = append(exts, normalizeExt(ext))
	}
	s.Extensions = exts
	if err := validate(s); err != nil {
		return types.Settings{}, err
	}
	return s, nil
}

// normalizeExt trims whitespace and adds the leading dot if missing.
func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

var settingsValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func validate(s types.Settings) error {
	err := settingsValidator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, fe.Field())
		default:
			invalid = append(invalid, fe.Field())
		}
	}
	sort.Strings(missing)
	sort.Strings(invalid)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required key(s): "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid value for key(s): "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(parts, "; "))
}
