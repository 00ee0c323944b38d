package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pushhub/pkg/httpclient"
	"github.com/nao1215/pushhub/pkg/webpush"
)

// requestTimeout はファンアウトを待つ上限。
const requestTimeout = 2 * time.Minute

// notifyResponse は /notify のレスポンス。
type notifyResponse struct {
	Message string `json:"message"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
	ID      string `json:"id,omitempty"`
	Evicted *int   `json:"evicted,omitempty"`
}

// statusResponse は /status のレスポンス。
type statusResponse struct {
	Subscriptions int    `json:"subscriptions"`
	Message       string `json:"message"`
	Secure        bool   `json:"secure,omitempty"`
}

func (o *globalOptions) client() *httpclient.Client {
	return httpclient.New(o.server, httpclient.WithToken(o.token), httpclient.WithTimeout(requestTimeout))
}

func newNotifyCmd(opts *globalOptions) *cobra.Command {
	var msg webpush.Message

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a notification to every subscription",
		Long: `notify posts a message to /notify. Without --title and --body the server
sends its default test message.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var body any
			if msg.Title != "" || msg.Body != "" {
				body = msg
			}

			var resp notifyResponse
			if err := opts.client().PostJSON(contextOrBackground(cmd), "/notify", body, &resp); err != nil {
				return fmt.Errorf("failed to notify: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: success=%d failed=%d\n", resp.Message, resp.Success, resp.Failed)
			if resp.ID != "" {
				fmt.Fprintf(out, "  batch:   %s\n", resp.ID)
			}
			if resp.Evicted != nil {
				fmt.Fprintf(out, "  evicted: %d\n", *resp.Evicted)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&msg.Title, "title", "", "notification title")
	cmd.Flags().StringVar(&msg.Body, "body", "", "notification body")
	cmd.Flags().StringVar(&msg.Icon, "icon", "", "icon URL")
	cmd.Flags().StringVar(&msg.Badge, "badge", "", "badge URL")
	cmd.Flags().StringVar(&msg.Tag, "tag", "", "tag that replaces earlier notifications with the same tag")
	cmd.Flags().BoolVar(&msg.RequireInteraction, "require-interaction", false, "keep the notification visible until dismissed")
	return cmd
}

func newTriggerCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Send the demo notification via /trigger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := opts.client().GetText(contextOrBackground(cmd), "/trigger")
			if err != nil {
				return fmt.Errorf("failed to trigger: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the number of registered subscriptions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var status statusResponse
			if err := opts.client().GetJSON(contextOrBackground(cmd), "/status", &status); err != nil {
				return fmt.Errorf("failed to fetch status: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", status.Message, opts.server)
			if status.Secure {
				fmt.Fprintln(out, "  secure: true")
			}
			return nil
		},
	}
}

// contextOrBackground はコマンドのコンテキストを返す。未設定ならBackground。
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
