package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"deal-analyzer-client/internal/common/config"
)

// Version is set at build time.
var Version = "dev"

// Execute runs dealctl with args and releases the App afterwards, also when the
// command failed.
func Execute(ctx context.Context, opts Options, args []string, out io.Writer) error {
	root, closeApp := newRootCmd(opts)
	defer closeApp()
	root.SetArgs(args)
	if opts.In != nil {
		root.SetIn(opts.In)
	}
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

// newRootCmd builds the dealctl command tree. Dependencies are created lazily in
// PersistentPreRunE so that --config and --api-url apply.
func newRootCmd(opts Options) (*cobra.Command, func()) {
	var (
		app        *App
		configPath string
		apiURL     string
		logLevel   string
	)
	getApp := func() *App { return app }

	rootCmd := &cobra.Command{
		Use:           "dealctl",
		Short:         "dealctl - commercial real estate deal analysis",
		Long:          "dealctl registers prospective properties, uploads their T12 and rent roll, and runs the backend underwriting analysis.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			o := opts
			if o.Config == nil && configPath != "" {
				cfg, err := config.LoadFromFile(configPath)
				if err != nil {
					return err
				}
				o.Config = cfg
			}
			if o.Config == nil {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				o.Config = cfg
			}
			if apiURL != "" {
				cfg := *o.Config
				cfg.API.BaseURL = strings.TrimSuffix(apiURL, "/") + "/"
				o.Config = &cfg
			}
			if logLevel != "" {
				cfg := *o.Config
				cfg.Logging.Level = logLevel
				o.Config = &cfg
			}

			built, err := NewApp(o, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			app = built
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API base URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newLoginCmd(getApp),
		newLogoutCmd(getApp),
		newWhoamiCmd(getApp),
		newRegisterCmd(getApp),
		newRefreshCmd(getApp),
		newDealsCmd(getApp),
		newDocumentsCmd(getApp),
		newAnalyzeCmd(getApp),
		newAnalysisCmd(getApp),
		newExportCmd(getApp),
		newFiltersCmd(getApp),
		newDashboardCmd(getApp),
		newVersionCmd(),
	)
	return rootCmd, func() {
		if app != nil {
			app.Close()
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dealctl %s\n", Version)
		},
	}
}
