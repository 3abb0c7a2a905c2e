package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ning0612/drivemirror/internal/adapter/gdrive"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize drivemirror with a Google account (auth_mode: oauth)",
		Long: `Runs the OAuth consent flow for the client configured under oauth.client_id
and oauth.client_secret and stores the resulting token for later runs.`,
		Args: cobra.NoArgs,
		RunE: runAuth,
	}
}

func runAuth(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.OAuth.ClientID == "" || cfg.OAuth.ClientSecret == "" {
		return fmt.Errorf("oauth.client_id and oauth.client_secret must be configured to authorize")
	}

	auth := gdrive.NewAuthenticator(cfg.OAuth.ClientID, cfg.OAuth.ClientSecret, cfg.OAuth.TokenPath, cfg.Scope)

	url, _, err := auth.AuthCodeURL()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Open the following URL in your browser and authorize drivemirror:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+url)
	fmt.Fprintln(out)
	fmt.Fprint(out, "Paste the authorization code: ")

	code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && strings.TrimSpace(code) == "" {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	if _, err := auth.Exchange(cmd.Context(), code); err != nil {
		return err
	}

	fmt.Fprintf(out, "Token saved to %s\n", auth.TokenPath())
	return nil
}
