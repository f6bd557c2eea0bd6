package cmd

import (
	"fmt"
	"os"

	"github.com/grafana/decaystats/logger"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "ds-tool",
	Short: "Inspect, merge and benchmark decayed digests",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Setup("ds-tool", viper.GetString("log-level"))
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var (
	// config params used by >1 subcommands are listed here
	// config params specific to only 1 command, go in the file for that command
	cfgFile string
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ds-tool.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level. panic|fatal|error|warning|info|debug")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".ds-tool" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".ds-tool")
	}

	viper.SetEnvPrefix("DS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
