package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/propwise/internal/config"
)

var (
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "propwise",
	Short: "Ask questions about real estate articles you point it at",
	Long: `PropWise fetches the web pages you give it, splits them into chunks,
embeds them into a local vector database and answers your questions from
that content, citing the pages each answer came from.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".propwise.yml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with API keys to load into the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
