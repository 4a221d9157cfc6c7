package cmd

import (
	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/cardpress/internal/config"
	"github.com/lehigh-university-libraries/cardpress/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is shared by every subcommand. cfg is loaded once, before the
// selected command runs, with that command's flags bound over it.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	bindings   map[*cobra.Command]map[string]string
}

// bind maps a command flag onto a configuration key. Several commands may
// bind the same key; only the executing command's flags apply.
func (a *app) bind(cmd *cobra.Command, key, flag string) {
	if a.bindings[cmd] == nil {
		a.bindings[cmd] = make(map[string]string)
	}
	a.bindings[cmd][key] = flag
}

func (a *app) applyBindings(cmd *cobra.Command) error {
	for key, flag := range a.bindings[cmd] {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

func NewRootCmd() *cobra.Command {
	a := &app{
		v:        viper.New(),
		bindings: make(map[*cobra.Command]map[string]string),
	}

	cmd := &cobra.Command{
		Use:   "cardpress",
		Short: "Render promotional cards from a spreadsheet and compose them into a journal",
		Long: `Cardpress turns spreadsheet rows into fixed-size promotional card PDFs,
bundles them into an archive and, on demand, composes them into one journal
grouped by category under colored banners.

Configuration comes from ./cardpress.yaml (or --config), CARDPRESS_* environment
variables and command-line flags, in increasing order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if err := a.applyBindings(cmd); err != nil {
				return err
			}
			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			a.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Config file (default ./cardpress.yaml when present)")
	cmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	_ = a.v.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))

	cmd.AddCommand(
		newRenderCmd(a),
		newArchiveCmd(a),
		newComposeCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)

	return cmd
}
