// Command zoof-lsp is the zoof language server. By default it speaks the
// protocol on stdin and stdout.
package main

import (
	"fmt"
	"os"

	"github.com/ggoodman/zoof-lsp/lspservice"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = lspservice.DefaultServerVersion
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		// stdout may carry the protocol; errors always go to stderr.
		fmt.Fprintf(os.Stderr, "zoof-lsp: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "zoof-lsp",
		Short: "Language server for zoof",
		Long: `zoof-lsp is a language server for the zoof language.

Without a subcommand it serves a single client on stdin/stdout,
the same as "zoof-lsp serve". Settings are read from ZOOF_LSP_*
environment variables; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &flags)
		},
	}
	flags.register(cmd)

	cmd.AddCommand(
		serveCmd(),
		logsCmd(),
		schemaCmd(),
		versionCmd(),
	)
	return cmd
}
