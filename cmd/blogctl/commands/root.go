package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/example/inkpress/internal/config"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "blogctl",
	Short: "Operations CLI for the inkpress blog platform",
	Long: `blogctl manages an inkpress deployment from the command line.

It reads the same environment variables as the server (optionally from
an env file), so it can run against any environment the server can.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file to load before reading configuration")
}

// loadEnv loads the env file into the process environment. A missing
// file is not an error.
func loadEnv() {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
}

func loadConfig() (*config.Config, error) {
	loadEnv()
	return config.Load()
}
