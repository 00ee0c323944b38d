// pushserverを操作するCLI。
// VAPID鍵と送信者トークンの生成、通知の送信、状態の確認を行う。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalOptions は全サブコマンド共通のフラグ。
type globalOptions struct {
	server string
	token  string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "pushctl",
		Short:         "CLI for pushhub - manage keys and fan out Web Push notifications",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", envOr("PUSHHUB_SERVER", "http://localhost:3000"), "pushserver base URL")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("PUSHHUB_TOKEN"), "sender token for /notify and /trigger")

	rootCmd.AddCommand(
		newVAPIDCmd(),
		newTokenCmd(),
		newNotifyCmd(opts),
		newTriggerCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
