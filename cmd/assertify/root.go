package main

import (
	"github.com/spf13/cobra"

	"github.com/sadopc/assertify/internal/app"
	"github.com/sadopc/assertify/internal/config"
)

// cli holds the persistent flags shared by every command.
type cli struct {
	configPath string
	backendURL string
	theme      string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "assertify",
		Short: "API request workbench with a history that follows you when you sign in",
		Long: `assertify sends HTTP requests through the assertify backend and records
every call in a history you can organize into collections.

Without an account, history is kept on this machine. Signing in moves it to
your account and from then on it lives on the backend.

Run without a command to open the terminal UI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default ~/.config/assertify/config.yaml)")
	pf.StringVar(&c.backendURL, "backend-url", "", "backend base URL, overrides the config file")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "also write logs to stderr")
	root.Flags().StringVar(&c.theme, "theme", "", "color theme for the terminal UI")

	root.AddCommand(
		c.newSendCmd(),
		c.newHistoryCmd(),
		c.newCollectionsCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newGuestCmd(),
		c.newWhoamiCmd(),
		newVersionCmd(),
	)
	return root
}

func (c *cli) loadConfig() config.Config {
	var cfg config.Config
	if c.configPath != "" {
		cfg = config.LoadFile(c.configPath)
	} else {
		cfg = config.Load()
	}
	if c.backendURL != "" {
		cfg.BackendURL = c.backendURL
	}
	if c.theme != "" {
		cfg.Theme = c.theme
	}
	return cfg
}

func (c *cli) runTUI() error {
	env, err := c.open(true)
	if err != nil {
		return err
	}
	defer env.Close()

	model := app.New(env.ctrl, env.proxy, env.tracker, app.Options{
		Theme:   env.cfg.Theme,
		Timeout: env.cfg.Timeout,
		Logger:  env.log,
	})
	return app.Run(model, env.ctrl.SetHooks)
}
