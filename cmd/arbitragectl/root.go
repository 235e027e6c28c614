package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "arbitragectl",
	Short: "CLI for the budget arbitrage server",
	Long: `arbitragectl drives the arbitrage server HTTP API: it submits runs,
reads run history and manages the scoring weights of a collectivite.

Configuration is read from flags, environment variables (ARBITRAGECTL_*) and
an optional config file (~/.arbitragectl.yaml), in that order of precedence.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.arbitragectl.yaml)")
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "Arbitrage server URL")
	rootCmd.PersistentFlags().String("token", "", "Bearer token")
	rootCmd.PersistentFlags().StringP("collectivite", "c", "", "Collectivite id")
	rootCmd.PersistentFlags().String("user", "", "Actor id sent as X-User-Id in header auth mode")

	for _, key := range []string{"server", "token", "collectivite", "user"} {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(lastCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".arbitragectl")
			viper.SetConfigType("yaml")
		}
	}

	viper.SetEnvPrefix("ARBITRAGECTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

// requireCollectivite returns the configured collectivite id or an error.
func requireCollectivite() (string, error) {
	id := viper.GetString("collectivite")
	if id == "" {
		return "", fmt.Errorf("a collectivite id is required (use --collectivite or ARBITRAGECTL_COLLECTIVITE)")
	}
	return id, nil
}
