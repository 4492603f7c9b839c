package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/docket/internal/logging"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/validate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const version = "0.1.0"

var (
	cfgFile string
	verbose bool

	// Populated by PersistentPreRunE for every subcommand
	cfg            *model.Config
	logger         = zap.NewNop()
	configFileUsed string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "docket",
	Short: "Docket - defense-side complaint analysis",
	Long: `Docket analyzes a legal complaint from the defendant's side.

It extracts the claims asserted, retrieves the statutory provisions that
govern them, compares the evidence at hand against what each claim
requires, and produces a risk score with a recommendation to fight,
settle, or gather more information.

Docket assists counsel. It does not replace legal advice.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Docket.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("docket v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.docket/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, console)")

	rootCmd.AddCommand(versionCmd)
}

// flagBinding maps a command flag onto a configuration key
type flagBinding struct {
	cmd  *cobra.Command
	flag string
	key  string
}

var bindings []flagBinding

// bindFlag makes flag on cmd override key when set
func bindFlag(cmd *cobra.Command, flag, key string) {
	bindings = append(bindings, flagBinding{cmd: cmd, flag: flag, key: key})
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded, used, err := loadConfig(cmd, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	configFileUsed = used

	l, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, verbose)
	if err != nil {
		return err
	}
	logger = l
	if used != "" {
		logger.Debug("using config file", zap.String("path", used))
	}
	return nil
}

// envOnlyKeys are read from the environment even when the file and
// defaults leave them unset
var envOnlyKeys = []string{
	"llm.api_key", "llm.base_url", "llm.http_proxy", "llm.https_proxy",
	"embedding.api_key", "embedding.base_url",
	"redis.password", "rate_limit.trusted_keys",
	"statutes.database_url", "statutes.seed_file",
}

// loadConfig merges defaults, the config file, DOCKET_* environment
// variables and flags bound on cmd, in increasing priority
func loadConfig(cmd *cobra.Command, path string) (*model.Config, string, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return nil, "", fmt.Errorf("marshal defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, "", fmt.Errorf("load defaults: %w", err)
	}

	used := ""
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".docket", "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("config file not found: %s", path)
			}
			return nil, "", fmt.Errorf("read config %s: %w", path, err)
		}
		used = path
	}

	v.SetEnvPrefix("DOCKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		_ = v.BindEnv(key)
	}

	if cmd != nil {
		for _, b := range bindings {
			if b.cmd != cmd {
				continue
			}
			if f := cmd.Flags().Lookup(b.flag); f != nil {
				if err := v.BindPFlag(b.key, f); err != nil {
					return nil, "", fmt.Errorf("bind flag %s: %w", b.flag, err)
				}
			}
		}
		for flag, key := range map[string]string{"log-level": "logging.level", "log-format": "logging.format"} {
			if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
				v.Set(key, f.Value.String())
			}
		}
	}

	loaded := &model.Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}
	applyKeyFallbacks(loaded)

	if err := validate.Config(loaded); err != nil {
		return nil, "", err
	}
	return loaded, used, nil
}

// applyKeyFallbacks fills API keys from the providers' conventional variables
func applyKeyFallbacks(c *model.Config) {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = providerKey(c.LLM.Provider)
	}
	if c.LLM.BaseURL == "" && strings.EqualFold(c.LLM.Provider, "ollama") {
		c.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = providerKey(c.Embedding.Provider)
	}
}

func providerKey(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini", "google", "genai":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return ""
	}
}
