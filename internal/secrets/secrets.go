// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves caption provider API keys. A key comes from its
// environment variable when set, otherwise from a file of the same name in
// the secrets directory (anthropic-api-key, openai-api-key).
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Key file names.
const (
	AnthropicKey = "anthropic-api-key"
	OpenAIKey    = "openai-api-key"
)

// envVars maps key file names to the environment variables that take
// precedence over them.
var envVars = map[string]string{
	AnthropicKey: "ANTHROPIC_API_KEY",
	OpenAIKey:    "OPENAI_API_KEY",
}

// Keys holds the key files loaded from a secrets directory, by file name.
type Keys map[string]string

// Load reads every regular, non-hidden file in dir. A missing directory
// yields no keys. Unreadable files are skipped and files readable by group
// or others are loaded with a warning.
func Load(dir string, logger *slog.Logger) (Keys, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Keys{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	keys := make(Keys)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("secrets: could not read key file", "name", name, "error", err)
			continue
		}
		if info, err := entry.Info(); err == nil && info.Mode().Perm()&0o077 != 0 {
			logger.Warn("secrets: key file is accessible to other users", "path", path, "mode", info.Mode().Perm().String())
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			keys[name] = value
		}
	}
	return keys, nil
}

// Names returns the loaded key names in sorted order.
func (k Keys) Names() []string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the value for the named key, preferring its environment
// variable over the loaded file. It returns "" when neither is set.
func (k Keys) Resolve(name string) string {
	if env := envVars[name]; env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return k[name]
}

// ForProvider resolves the API key of a caption provider.
func (k Keys) ForProvider(provider string) string {
	return k.Resolve(KeyFile(provider))
}

// KeyFile returns the key file name used by provider.
func KeyFile(provider string) string {
	if provider == "openai" {
		return OpenAIKey
	}
	return AnthropicKey
}
