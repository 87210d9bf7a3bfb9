package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-triplit/adapter"
	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/jrsteele09/go-auth-triplit/internal/config"
	"github.com/jrsteele09/go-auth-triplit/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() (*cobra.Command, error) {
	cfg := config.New()
	v := viper.New()

	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Inspect and mint tokens for the auth storage adapter",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if v.GetBool("debug") {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(cfg.GetAppName())
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.Bool("debug", cfg.GetDebugLogs(), "enable debug logging")
	flags.String("secret", "", "signing secret (default: $BETTER_AUTH_SECRET)")

	for _, name := range []string{"debug", "secret"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			return nil, errors.Wrapf(err, "[newRootCmd] binding --%s", name)
		}
	}
	v.SetDefault("secret", cfg.GetSecretKey())

	root.AddCommand(newMintCmd(v), newWhereCmd(cfg), newSyncCmd(cfg, v))
	return root, nil
}

func newMintCmd(v *viper.Viper) *cobra.Command {
	var (
		user      authmodel.User
		role      string
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a session token for a user",
		Long: `Mint a signed session token with the same claims the adapter writes on
session creation.

The signing secret is read from --secret or the BETTER_AUTH_SECRET environment variable.

Examples:
  authctl mint --user-id u1 --email a@b.com --role member --expires-in 24h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := v.GetString("secret")
			if secret == "" {
				return adapter.ErrNoSecretKey
			}
			if user.ID == "" {
				return errors.New("--user-id is required")
			}
			if role != "" {
				user.Role = role
			}

			expiresAt := time.Now().Add(expiresIn)
			signed, err := token.NewSessionCreator(token.NewHMACSigner(secret), nil).CreateForUser(user, expiresAt)
			if err != nil {
				return errors.Wrap(err, "[mint]")
			}

			log.Debug().Str("sub", user.ID).Time("expires_at", expiresAt).Msg("Minted session token")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&user.ID, "user-id", "", "user id (sub claim)")
	flags.StringVar(&user.Email, "email", "", "user email")
	flags.BoolVar(&user.EmailVerified, "email-verified", false, "whether the email is verified")
	flags.StringVar(&user.Name, "name", "", "display name")
	flags.StringVar(&user.Username, "username", "", "username")
	flags.StringVar(&role, "role", "", "user role")
	flags.DurationVar(&expiresIn, "expires-in", 7*24*time.Hour, "token lifetime")
	return cmd
}

func newWhereCmd(cfg config.Config) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "where [json]",
		Short: "Translate a generic filter list into native query filters",
		Long: `Translate a JSON array of {field, operator, value} filters into the native
filters the adapter sends to the query client. Filters with unknown operators are
reported and dropped.

Examples:
  authctl where '[{"field":"email","operator":"ends_with","value":"@example.com"}]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dec := json.NewDecoder(strings.NewReader(args[0]))
			dec.UseNumber()

			var where []authmodel.Where
			if err := dec.Decode(&where); err != nil {
				return errors.Wrap(err, "[where] invalid filter JSON")
			}
			if err := adapter.ValidateWhere(where); err != nil {
				log.Warn().Err(err).Msg("Filter will be dropped")
			}

			resolver := adapter.NewResolver(cfg.GetUsePlural())
			out := struct {
				Collection string `json:"collection"`
				Where      any    `json:"where"`
			}{
				Collection: resolver.ModelName(model),
				Where:      adapter.ParseWhere(where),
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&model, "model", authmodel.ModelUser, "model the filter applies to")
	return cmd
}
