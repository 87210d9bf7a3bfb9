package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-auth-triplit/adapter"
	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/jrsteele09/go-auth-triplit/internal/config"
	"github.com/jrsteele09/go-auth-triplit/query/clientfake"
	"github.com/jrsteele09/go-auth-triplit/sessions"
	"github.com/jrsteele09/go-auth-triplit/sessionsync"
	"github.com/jrsteele09/go-auth-triplit/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type syncStep struct {
	Step    string             `json:"step"`
	Action  sessionsync.Action `json:"action"`
	Token   string             `json:"token,omitempty"`
	Errors  int                `json:"errors"`
	Connect bool               `json:"connected"`
}

func newSyncCmd(cfg config.Config, v *viper.Viper) *cobra.Command {
	var (
		email     string
		role      string
		anonToken string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Walk the session synchronizer through a sign in, role change and sign out",
		Long: `Run the storage adapter and session synchronizer against an in-memory query client.
A user signs in, has their role changed, signs in again and finally signs out. Each
reconciliation is printed as a JSON line.

Examples:
  authctl sync --secret dev --role member`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := v.GetString("secret")
			if secret == "" {
				return adapter.ErrNoSecretKey
			}
			if anonToken == "" {
				anonToken = cfg.GetAnonToken()
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			client := clientfake.NewFakeClient()
			store, err := adapter.New(client,
				adapter.WithSecretKey(secret),
				adapter.WithUsePlural(cfg.GetUsePlural()),
				adapter.WithDebugLogs(v.GetBool("debug")),
				adapter.WithMaxConcurrency(cfg.GetMaxConcurrency()),
			)
			if err != nil {
				return errors.Wrap(err, "[sync]")
			}
			userRepo := users.NewRepo(store)
			sessionRepo := sessions.NewRepo(store, userRepo)

			syncer := sessionsync.New(client, sessionsync.Options{
				AnonToken: anonToken,
				Observer: func(e sessionsync.Event) {
					if e.Err != nil {
						log.Warn().Err(e.Err).Uint64("seq", e.Seq).Msg("Sync step failed")
					}
				},
			})
			defer syncer.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			report := func(step string, data *authmodel.SessionData) error {
				out := syncer.Reconcile(ctx, data)
				return enc.Encode(syncStep{
					Step:    step,
					Action:  out.Action,
					Token:   client.Token(),
					Errors:  len(out.Errors),
					Connect: client.Connected(),
				})
			}

			user := &authmodel.User{Email: email, Name: "authctl", Role: role}
			if err := userRepo.Create(ctx, user); err != nil {
				return errors.Wrap(err, "[sync]")
			}

			signIn := func(step string, expiresIn time.Duration) error {
				s, err := sessionRepo.Create(ctx, sessions.NewSession{UserID: user.ID, ExpiresIn: expiresIn, UserAgent: "authctl"})
				if err != nil {
					return errors.Wrap(err, "[sync]")
				}
				data, err := sessionRepo.Data(ctx, s.Token)
				if err != nil {
					return errors.Wrap(err, "[sync]")
				}
				return report(step, data)
			}

			if err := signIn("sign_in", time.Hour); err != nil {
				return err
			}
			if err := signIn("refresh", 2*time.Hour); err != nil {
				return err
			}
			if err := userRepo.SetRole(ctx, user.ID, role+"-changed"); err != nil {
				return errors.Wrap(err, "[sync]")
			}
			if err := signIn("role_changed", 3*time.Hour); err != nil {
				return err
			}
			if _, err := sessionRepo.DeleteForUser(ctx, user.ID); err != nil {
				return errors.Wrap(err, "[sync]")
			}
			return report("sign_out", nil)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&email, "email", "demo@example.com", "email of the demo user")
	flags.StringVar(&role, "role", "member", "initial role of the demo user")
	flags.StringVar(&anonToken, "anon-token", "", "fallback token after sign out (default: $NEXT_PUBLIC_TRIPLIT_ANON_TOKEN)")
	return cmd
}
