// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docmark/pkg/types"
)

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docmark")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docmark"))
		}
	}

	viper.SetEnvPrefix("DOCMARK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("caption.api_key")
}

// loadConfig layers the built-in defaults, the config file, DOCMARK_*
// environment variables and bound flags, then validates the result.
func loadConfig() (types.Config, error) {
	defaults, err := yaml.Marshal(types.DefaultConfig())
	if err != nil {
		return types.Config{}, fmt.Errorf("encoding defaults: %w", err)
	}
	// Registering every default key lets AutomaticEnv see nested keys.
	var tree map[string]any
	if err := yaml.Unmarshal(defaults, &tree); err != nil {
		return types.Config{}, fmt.Errorf("decoding defaults: %w", err)
	}
	setDefaults("", tree)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("reading config: %w", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	var c types.Config
	if err := viper.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func setDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok && len(sub) > 0 && key != "layout.prefixes" && key != "conversion.strategies" {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// bindFlag ties a command flag to a configuration key.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Config prints the configuration after defaults, the config file,
DOCMARK_* environment variables and flags have been applied. The output is
a valid docmark.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
