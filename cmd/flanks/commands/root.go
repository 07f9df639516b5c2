package commands

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

	"github.com/fivetwenty-io/flanks-go/internal/constants"
)

// persistentFlags are bound to viper under the same key, so each one can also be
// set as FLANKS_<NAME> or in the config file.
var persistentFlags = []string{
	"config", "env-file", "base-url", "client-id", "client-secret", "timeout",
	"max-retries", "retry-network-errors", "output", "verbose", "debug", "trace", "no-color",
}

// NewRootCommand builds the flanks command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flanks",
		Short: "Flanks API CLI",
		Long: `A command-line interface for the Flanks financial-aggregation API.

Credentials are read from --client-id/--client-secret, the FLANKS_CLIENT_ID and
FLANKS_CLIENT_SECRET environment variables (a .env file is loaded first), or
$HOME/.flanks/config.yml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.flanks/config.yml)")
	flags.String("env-file", ".env", "dotenv file loaded before reading FLANKS_* variables")
	flags.String("base-url", constants.DefaultBaseURL, "API base URL")
	flags.String("client-id", "", "OAuth2 client ID")
	flags.String("client-secret", "", "OAuth2 client secret (prompted for when omitted on a terminal)")
	flags.Duration("timeout", constants.DefaultHTTPTimeout, "per-request timeout")
	flags.Int("max-retries", constants.DefaultRetryMax, "retries after the first attempt for 5xx and 429 responses")
	flags.Bool("retry-network-errors", false, "also retry connection failures")
	flags.StringP("output", "o", OutputFormatTable, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("debug", false, "log HTTP requests and responses")
	flags.Bool("trace", false, "print OpenTelemetry spans to stderr")
	flags.Bool("no-color", false, "disable colored log output")

	for _, name := range persistentFlags {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewTokenCommand())
	rootCmd.AddCommand(NewEntitiesCommand())
	rootCmd.AddCommand(NewConnectCommand())
	rootCmd.AddCommand(NewCredentialsCommand())
	rootCmd.AddCommand(NewLinksCommand())
	rootCmd.AddCommand(NewReportsCommand())
	rootCmd.AddCommand(NewProductsCommand())
	rootCmd.AddCommand(NewTransactionsCommand())

	return rootCmd
}

func initConfig(cmd *cobra.Command) error {
	envFile := viper.GetString("env-file")
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfgFile := viper.GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			// Search config in ~/.flanks/config.yml
			viper.AddConfigPath(filepath.Join(home, ".flanks"))
			viper.SetConfigType("yml")
			viper.SetConfigName("config")
		}
	}

	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("reading config file: %w", err)
	}

	if viper.GetBool("verbose") {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	}

	return nil
}
