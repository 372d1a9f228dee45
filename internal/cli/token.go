package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [SUBJECT]",
		Short: "Issue an API bearer token",
		Long: `Issue a bearer token for the HTTP API, signed with auth.secret and valid
for auth.tokenTTL. SUBJECT names the client and defaults to "cli".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runToken,
	}
}

func runToken(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	if a.auth == nil {
		return errors.New("auth.secret is not configured (set TABSPLIT_AUTH_SECRET)")
	}

	subject := "cli"
	if len(args) == 1 {
		subject = args[0]
	}

	token, err := a.auth.IssueToken(cmd.Context(), subject)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
