package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/hazardscore/internal/logging"
	"github.com/ppiankov/hazardscore/internal/model"
)

// Version is set at build time via -ldflags
var Version = "dev"

const envPrefix = "HAZARDSCORE"

var (
	cfgFile string
	envFile string
	verbose bool

	// cfg is the effective configuration, loaded before any command runs
	cfg *model.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hazardscore",
	Short: "Hazardscore - credibility scoring for crowd-sourced hazard reports",
	Long: `Hazardscore scores crowd-sourced coastal hazard reports.

Each report is classified, stored, and given a credibility score in [0,1]
combining classifier confidence, spatial consensus among distinct reporters,
a per-user spam penalty, a keyword plausibility term and time decay.
Reports scoring at or above the dashboard threshold are surfaced.

Every score ships with its breakdown.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hazardscore %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.hazardscore/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().String("store", "", "store driver (sqlite, memory)")
	rootCmd.PersistentFlags().String("dsn", "", "store data source (sqlite file path)")
	rootCmd.PersistentFlags().String("classifier", "", "classifier provider (keyword, openai, anthropic, ollama)")

	_ = viper.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("store.dsn", rootCmd.PersistentFlags().Lookup("dsn"))
	_ = viper.BindPFlag("classifier.provider", rootCmd.PersistentFlags().Lookup("classifier"))

	rootCmd.AddCommand(versionCmd)
}

// setup loads .env, reads configuration and initialises logging
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := configure(viper.GetViper(), cfgFile); err != nil {
		return err
	}

	loaded, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if verbose {
		loaded.Log.Level = "debug"
	}
	cfg = loaded

	logger := logging.Init("hazardscore", cfg.Log)
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	return nil
}

// configure registers defaults, the config file and the environment on v.
// An explicit file must exist; the default location is optional.
func configure(v *viper.Viper, file string) error {
	if err := setDefaults(v, model.DefaultConfig()); err != nil {
		return err
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".hazardscore"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// HAZARDSCORE_SERVER_ADDR overrides server.addr
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// omitempty keys are absent from the defaults
	_ = v.BindEnv("classifier.api_key")
	_ = v.BindEnv("classifier.base_url")
	_ = v.BindEnv("classifier.http_proxy")
	_ = v.BindEnv("classifier.https_proxy")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// setDefaults registers every key of def so AutomaticEnv can resolve it
func setDefaults(v *viper.Viper, def *model.Config) error {
	raw, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	flatten("", tree, v.SetDefault)
	return nil
}

func flatten(prefix string, tree map[string]any, set func(string, any)) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flatten(key, sub, set)
			continue
		}
		set(key, val)
	}
}

// loadConfig decodes v into a Config and applies provider credentials
// from their conventional environment variables
func loadConfig(v *viper.Viper) (*model.Config, error) {
	c := model.DefaultConfig()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	switch strings.ToLower(c.Classifier.Provider) {
	case "openai":
		if c.Classifier.APIKey == "" {
			c.Classifier.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if c.Classifier.APIKey == "" {
			c.Classifier.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if c.Classifier.BaseURL == "" {
			c.Classifier.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	return c, nil
}
