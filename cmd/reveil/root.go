package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/eliote-geeks/reveilartist/internal/adapter"
	"github.com/eliote-geeks/reveilartist/internal/tui"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "reveil",
		Short:         "Browse, preview and download from the Reveil Artist marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowser(ctx)
		},
	}

	rootCmd.AddCommand(newBrowseCommand(ctx))
	rootCmd.AddCommand(newLoginCommand(ctx))
	rootCmd.AddCommand(newLogoutCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newCartCommand(ctx))
	rootCmd.AddCommand(newPurchasesCommand(ctx))
	rootCmd.AddCommand(newDownloadCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newBrowseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowser(ctx)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reveil %s\n", Version)
		},
	}
}

func runBrowser(ctx *commandContext) error {
	sess, err := ctx.newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	logger := ctx.logger
	obs := tui.NewChannelObserver(sess)
	defer obs.Close()

	model := tui.NewModel(sess, obs, adapter.ClearServerConfig)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI", "signedIn", sess.Identity().SignedIn())

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
