package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ryokun6/ryos-sub006/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lyricsd",
		Short: "Streaming lyric annotation service",
		Long: `lyricsd annotates time-synced song lyrics with an LLM: it translates
lines, adds furigana readings to kanji, or writes soramimi sound-alikes,
streaming each finished line to the client over SSE and caching the
final result per lyric source.

Examples:
  lyricsd                          # Serve on the default address
  lyricsd --listen :9000           # Serve on a custom address
  lyricsd --provider gemini        # Use the Gemini API instead of OpenAI`,
		Args:    cobra.NoArgs,
		Version: internal.Version,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Default database path matches the service state directory
	home, _ := os.UserHomeDir()
	defaultDBPath := filepath.Join(home, ".local", "state", "lyricsd", "lyrics.db")

	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.lyricsd.yaml)")

	// Local flags
	cmd.Flags().StringVarP(&flags.Listen, "listen", "l", flags.Listen, "HTTP listen address")
	cmd.Flags().StringVar(&flags.DBPath, "db", defaultDBPath, "SQLite database path")

	// Provider flags
	cmd.Flags().StringVar(&flags.Provider, "provider", flags.Provider, "LLM provider: openai or gemini")
	cmd.Flags().StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI chat model for annotation")
	cmd.Flags().StringVar(&flags.GeminiModel, "gemini-model", flags.GeminiModel, "Gemini model for annotation")
	cmd.Flags().Float64Var(&flags.Temperature, "temperature", flags.Temperature, "Sampling temperature (0.0 to 2.0)")

	// Maintenance flags
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List available OpenAI models for the current API key")
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Archive the annotation database and exit")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
	viper.BindPFlag("server.db", cmd.Flags().Lookup("db"))
	viper.BindPFlag("provider.name", cmd.Flags().Lookup("provider"))
	viper.BindPFlag("provider.openai_model", cmd.Flags().Lookup("openai-model"))
	viper.BindPFlag("provider.gemini_model", cmd.Flags().Lookup("gemini-model"))
	viper.BindPFlag("provider.temperature", cmd.Flags().Lookup("temperature"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".lyricsd" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lyricsd")
	}

	// Environment variables
	viper.SetEnvPrefix("LYRICSD")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("provider.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("provider.gemini_key")
}
