package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ryokun6/ryos-sub006/internal/archive"
	"github.com/ryokun6/ryos-sub006/internal/cache"
	"github.com/ryokun6/ryos-sub006/internal/cli"
	"github.com/ryokun6/ryos-sub006/internal/models"
	"github.com/ryokun6/ryos-sub006/internal/provider"
	"github.com/ryokun6/ryos-sub006/internal/server"
	"github.com/ryokun6/ryos-sub006/internal/store"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, flags)
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, flags *cli.Flags) error {
	// Config file values take over when the flag was not set explicitly
	if !cmd.Flags().Changed("listen") && viper.IsSet("server.listen") {
		flags.Listen = viper.GetString("server.listen")
	}
	if !cmd.Flags().Changed("db") && viper.IsSet("server.db") {
		flags.DBPath = viper.GetString("server.db")
	}
	if !cmd.Flags().Changed("provider") && viper.IsSet("provider.name") {
		flags.Provider = viper.GetString("provider.name")
	}

	// Handle --archive flag
	if flags.Archive {
		if err := archive.ArchiveDatabase(flags.DBPath); err != nil {
			return fmt.Errorf("failed to archive database: %w", err)
		}
		return nil
	}

	// Handle --list-models flag
	if flags.ListModels {
		lister := models.NewLister(cli.GetOpenAIKey())
		return lister.ListAvailableModels()
	}

	if err := os.MkdirAll(filepath.Dir(flags.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	st, err := store.Open(flags.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	prov, err := provider.NewProvider(&provider.Config{
		Provider:    flags.Provider,
		OpenAIKey:   cli.GetOpenAIKey(),
		OpenAIModel: flags.OpenAIModel,
		GeminiKey:   cli.GetGeminiKey(),
		GeminiModel: flags.GeminiModel,
		Temperature: float32(flags.Temperature),
	})
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "lyricsd: ", log.LstdFlags)
	srv := server.New(st, provider.NewBreakerProvider(prov), cache.OwnerOnly{}, logger)

	mux := http.NewServeMux()
	srv.Register(mux)

	logger.Printf("serving on %s (provider=%s, db=%s)", flags.Listen, prov.Name(), flags.DBPath)
	return http.ListenAndServe(flags.Listen, mux)
}
