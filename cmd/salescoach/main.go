package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"salescoach/internal/config"
	"salescoach/internal/logging"
	"salescoach/internal/service"
)

var (
	cfgPath string
	app     *service.App
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "salescoach",
		Short:         "Jewelry sales training simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.AppConfig
			var err error
			if cfgPath == "" {
				cfg, _, err = config.LoadDefault()
			} else {
				cfg, err = config.Load(cfgPath)
			}
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log)
			app = service.New(cfg)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (uses ./config.yaml or ~/.config/salescoach/config.yaml if not provided)")

	rootCmd.AddCommand(
		newIndexCmd(),
		newQueryCmd(),
		newPersonasCmd(),
		newChatCmd(),
		newReportsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
