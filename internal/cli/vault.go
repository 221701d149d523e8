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

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// vaultCmd groups key vault inspection commands
var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Inspect key vaults",
}

// vaultShowCmd prints the public parts of a vault row
var vaultShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Show a user's public key and fingerprint",
	Long: `Show the public half of a user's key vault. Useful for verifying a
collaborator's fingerprint out of band before granting content access.

Example:
  taskvault vault show bob`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID := args[0]
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		kv, err := app.Vaults.Get(userID)
		if err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintVault(userID, kv); err != nil {
			handleError(err)
		}
	},
}

// vaultFingerprintCmd prints just the fingerprint
var vaultFingerprintCmd = &cobra.Command{
	Use:   "fingerprint <user>",
	Short: "Print a user's public key fingerprint",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID := args[0]
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		kv, err := app.Vaults.Get(userID)
		if err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintMessage(fmt.Sprintf("%s %s", userID, kv.Fingerprint)); err != nil {
			handleError(err)
		}
	},
}

func init() {
	vaultCmd.AddCommand(vaultShowCmd)
	vaultCmd.AddCommand(vaultFingerprintCmd)
}
