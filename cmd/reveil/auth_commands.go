package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eliote-geeks/reveilartist/internal/adapter"
	"github.com/eliote-geeks/reveilartist/internal/marketplace"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var serverFlag string
	var promptServer bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the marketplace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			serverURL := strings.TrimSpace(serverFlag)
			if serverURL == "" && promptServer {
				if serverURL, err = marketplace.PromptForServerURL(); err != nil {
					return err
				}
			}
			if serverURL == "" {
				serverURL = cfg.Server.URL
			}
			serverURL = strings.TrimRight(serverURL, "/")

			flow := marketplace.NewAuthFlow(ctx.logger.With("component", "auth"))
			result, err := flow.Run(cmd.Context(), serverURL)
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			if err := adapter.SaveCredentials(serverURL, result.Token, result.UserID, result.Username); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed in. Run reveil to start browsing.")
			return nil
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "Marketplace URL (defaults to the configured one)")
	cmd.Flags().BoolVar(&promptServer, "ask-server", false, "Prompt for the marketplace URL")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	var clearCache bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := adapter.ClearServerConfig(); err != nil {
				return err
			}
			if clearCache {
				if err := adapter.ClearCache(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearCache, "clear-cache", false, "Also delete saved carts")
	return cmd
}
