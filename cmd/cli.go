package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/b13-niass/esign/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Command annotations read by the root pre-run hook.
const (
	// annotationOffline marks commands that need neither the session database nor the backend.
	annotationOffline = "esign/offline"
	// annotationAuth marks commands that need a signed-in session.
	annotationAuth = "esign/auth"
)

type rootOptions struct {
	configPath string
	timeout    time.Duration
	metrics    bool
}

func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{}
	rootCmd := createRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	err := rootCmd.ExecuteContext(ctx)
	a.close(errOut)
	if err != nil {
		err = describe(err)
		fmt.Fprintln(errOut, "Error:", err)
		log.Error().Err(err).Msg("Command execution failed.")
	}
	return clierr.ExitCode(err)
}

func createRootCmd(a *app) *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "esign",
		Short:         "Command-line client for the esign signature workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.start(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the config file (default ~/.esign/config.yaml)")
	rootCmd.PersistentFlags().DurationVarP(&opts.timeout, "timeout", "T", 0, "Abort the command after this duration (0 means no limit)")
	rootCmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "Print client metrics to stderr when the command ends")
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	rootCmd.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		demandesCmd(a),
		usersCmd(a),
		documentsCmd(a),
		archiveCmd(a),
		configCmd(a),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

// annotated reports whether cmd or one of its parents carries the annotation.
func annotated(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[key] == "true" {
			return true
		}
	}
	return false
}

func offline() map[string]string      { return map[string]string{annotationOffline: "true"} }
func requiresAuth() map[string]string { return map[string]string{annotationAuth: "true"} }
