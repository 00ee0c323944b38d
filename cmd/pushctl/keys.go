package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pushhub/pkg/middleware"
	"github.com/nao1215/pushhub/pkg/webpush"
)

func newVAPIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid",
		Short: "Generate a VAPID key pair in .env format",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := webpush.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\n", keys.PublicKey)
			fmt.Fprintf(out, "VAPID_PRIVATE_KEY=%s\n", keys.PrivateKey)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		secret string
		sender string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a sender token for a server started with NOTIFY_JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return errors.New("--secret or NOTIFY_JWT_SECRET is required")
			}
			token, err := middleware.GenerateJWT(secret, sender, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("NOTIFY_JWT_SECRET"), "shared secret configured on the server")
	cmd.Flags().StringVar(&sender, "sender", "pushctl", "sender name recorded in the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
