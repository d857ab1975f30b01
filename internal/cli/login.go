// internal/cli/login.go

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the service",
	Long: `Login prompts for credentials, exchanges them for a bearer token, and
stores the token in the OS keyring. Submission commands require a stored
token.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Fprint(os.Stderr, "email: ")
		email, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading email: %w", err)
		}
		fmt.Fprint(os.Stderr, "password: ")
		password, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		user, err := newClient().Login(cmd.Context(), strings.TrimSpace(email), strings.TrimSpace(password))
		if err != nil {
			return err
		}
		if user != nil && user.Email != "" {
			log.Info().Str("user", user.Email).Msg("logged in")
		} else {
			log.Info().Msg("logged in")
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored token",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := tokenStore().Clear(); err != nil {
			return err
		}
		log.Info().Msg("logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, err := newClient().CurrentUser(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", user.Email, user.Role)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
