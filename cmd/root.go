package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/quickapply/internal/discovery"
	"github.com/spigell/quickapply/internal/matching"
	"github.com/spigell/quickapply/internal/portal"
	"github.com/spigell/quickapply/internal/report"
	"github.com/spigell/quickapply/internal/wizard"
)

const (
	app = "quickapply"
)

type Config struct {
	Identity   string `mapstructure:"identity"`
	Secret     string `mapstructure:"secret" json:"-"`
	SecretFile string `mapstructure:"secret-file"`

	Search      *SearchConfig    `mapstructure:"search" validate:"required"`
	Apply       *ApplyConfig     `mapstructure:"apply" validate:"required"`
	Resume      string           `mapstructure:"resume"`
	ExcludeFile string           `mapstructure:"exclude-file"`
	Exclude     *ExcludeConfig   `mapstructure:"exclude"`
	HistoryFile string           `mapstructure:"history-file"`
	Browser     *BrowserConfig   `mapstructure:"browser" validate:"required"`
	Site        portal.Site      `mapstructure:"site"`
	Selectors   *SelectorsConfig `mapstructure:"selectors"`
	Report      *ReportConfig    `mapstructure:"report" validate:"required"`
	Matching    *MatchingConfig  `mapstructure:"matching" validate:"required"`
}

type SearchConfig struct {
	Keywords string `mapstructure:"keywords"`
	Location string `mapstructure:"location"`
}

type ApplyConfig struct {
	MaxApplications   int           `mapstructure:"max-applications" validate:"gte=0"`
	Delay             time.Duration `mapstructure:"delay" validate:"gte=0"`
	MinScore          float64       `mapstructure:"min-score" validate:"gte=0,lte=1"`
	ExcludeUnsuitable bool          `mapstructure:"exclude-unsuitable"`
}

type ExcludeConfig struct {
	Companies []string `mapstructure:"companies"`
}

type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless"`
	RemoteURL       string        `mapstructure:"remote-url" validate:"omitempty,url"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Settle          time.Duration `mapstructure:"settle" validate:"gte=0"`
	ScrollPause     time.Duration `mapstructure:"scroll-pause" validate:"gte=0"`
	MaxScrollRounds int           `mapstructure:"max-scroll-rounds" validate:"gte=0"`
}

type SelectorsConfig struct {
	Portal    portal.Selectors    `mapstructure:"portal"`
	Discovery discovery.Selectors `mapstructure:"discovery"`
	Wizard    wizard.Selectors    `mapstructure:"wizard"`
}

type ReportConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format" validate:"oneof=json yaml"`
}

type MatchingConfig struct {
	Provider string        `mapstructure:"provider" validate:"oneof=tfidf gemini"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "quickapply searches job postings, scores them against a resume and applies through quick apply",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"identity":                     "QUICKAPPLY_IDENTITY",
		"secret":                       "QUICKAPPLY_SECRET",
		"secret-file":                  "QUICKAPPLY_SECRET_FILE",
		"matching.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is quickapply.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("apply.max-applications", 50)
	viper.SetDefault("apply.delay", 3*time.Second)
	viper.SetDefault("apply.min-score", matching.DefaultMinScore)
	viper.SetDefault("browser.timeout", 10*time.Second)
	viper.SetDefault("browser.settle", 2*time.Second)
	viper.SetDefault("browser.scroll-pause", discovery.DefaultScrollPause)
	viper.SetDefault("browser.max-scroll-rounds", discovery.DefaultMaxRounds)
	viper.SetDefault("report.dir", ".")
	viper.SetDefault("report.format", report.FormatJSON)
	viper.SetDefault("matching.provider", "tfidf")
	viper.SetDefault("history-file", ".quickapply/history.db")
}

func initConfig() {
	// A missing .env is fine; credentials may come from the config or a prompt.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	// Config needed only for run command. Analyze and version work without it.
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// defaultConfig holds the values that cannot be expressed as viper defaults.
// Unmarshal only overwrites the keys present in the configuration.
func defaultConfig() *Config {
	return &Config{
		Site: portal.DefaultSite(),
		Selectors: &SelectorsConfig{
			Portal:    portal.DefaultSelectors(),
			Discovery: discovery.DefaultSelectors(),
			Wizard:    wizard.DefaultSelectors(),
		},
		Search:   &SearchConfig{},
		Exclude:  &ExcludeConfig{},
		Matching: &MatchingConfig{Gemini: &GeminiConfig{}},
	}
}

func getConfig() (*Config, error) {
	config := defaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return config, nil
}
