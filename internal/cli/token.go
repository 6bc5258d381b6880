package cli

import (
	"fmt"
	"time"

	"github.com/buemura/safeurl/internal/auth"
	"github.com/spf13/cobra"
)

var ttlFlag time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <user>",
	Short: "Issue an API session token",
	Long:  "Signs a bearer token for the REST API with server.jwt_secret.",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().DurationVar(&ttlFlag, "ttl", 0, "token lifetime (default server.token_ttl)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	iss, err := auth.NewIssuer(appConfig.Server.JWTSecret)
	if err != nil {
		return fmt.Errorf("%w: set server.jwt_secret or SAFEURL_SERVER_JWT_SECRET", err)
	}

	ttl := appConfig.Server.TokenTTL
	if ttlFlag > 0 {
		ttl = ttlFlag
	}
	tok, err := iss.Issue(args[0], ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
