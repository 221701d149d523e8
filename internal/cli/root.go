// Copyright (c) 2025 TaskVault Project
//
// This file is part of go-taskvault.
//
// go-taskvault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@taskvault.dev for commercial licensing options.

// Package cli implements the taskvault command line interface. Every
// command runs against the local store: commands that touch encrypted
// content prompt for the acting user's passphrase, establish a session,
// and perform the operation in-process.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var globalOptions *Options

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "taskvault",
	Short: "taskvault CLI - Encrypted collaborative task manager",
	Long: `taskvault manages per-user key vaults and end-to-end encrypted
task records. Each user owns an RSA keypair whose private key is
encrypted under their passphrase, plus a content key used to encrypt
task fields. Content keys can be granted to collaborators so shared
tasks stay readable across password changes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	globalOptions = NewOptions()

	rootCmd.PersistentFlags().StringVar(&globalOptions.ConfigFile, "config", "",
		"config file (default is built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&globalOptions.DataDir, "data-dir", "",
		"directory for the file storage backend (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&globalOptions.User, "user", "u", "",
		"acting user id")
	rootCmd.PersistentFlags().StringVarP(&globalOptions.OutputFormat, "output", "o", "text",
		"output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&globalOptions.Verbose, "verbose", "v", false,
		"verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(taskCmd)
}

func getOptions() *Options {
	return globalOptions
}

// requireUser returns the acting user id or exits with an error.
func requireUser() string {
	if globalOptions.User == "" {
		handleError(fmt.Errorf("--user is required"))
	}
	return globalOptions.User
}

// handleError prints an error and exits with code 1
func handleError(err error) {
	printer := NewPrinter(globalOptions.OutputFormat, os.Stderr)
	_ = printer.PrintError(err)
	os.Exit(1)
}

// printVerbose prints a message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if globalOptions.Verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] "+format+"\n", args...)
	}
}
