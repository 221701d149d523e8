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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// signupCmd provisions a new user vault
var signupCmd = &cobra.Command{
	Use:   "signup <user>",
	Short: "Create a user and provision their key vault",
	Long: `Create a new user account. A fresh RSA keypair is generated: the
private key is encrypted under the chosen passphrase, an escrowed copy
is stored for collaborator grants, and a content key is established for
encrypting the user's task fields.

Example:
  taskvault signup alice`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID := args[0]
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		pass, err := promptNewPassword("Passphrase: ")
		if err != nil {
			handleError(err)
			return
		}
		defer pass.Clear()

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		passphrase, err := pass.String()
		if err != nil {
			handleError(err)
			return
		}

		printVerbose("Generating %d-bit keypair for %s", app.Config.Keys.KeyBits, userID)
		if err := app.Accounts.Signup(context.Background(), app.Unlock, userID, passphrase); err != nil {
			handleError(err)
			return
		}

		kv, err := app.Vaults.Get(userID)
		if err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintMessage(fmt.Sprintf("Created vault for %s (fingerprint %s)", userID, kv.Fingerprint)); err != nil {
			handleError(err)
		}
	},
}

// passwdCmd rotates a user's passphrase
var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the acting user's passphrase",
	Long: `Re-encrypt the acting user's private key under a new passphrase.
The keypair and content key are unchanged, so existing ciphertext and
collaborator grants keep working.

Example:
  taskvault --user alice passwd`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		userID := requireUser()
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		newPass, err := promptNewPassword("New passphrase: ")
		if err != nil {
			handleError(err)
			return
		}
		defer newPass.Clear()

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		passphrase, err := newPass.String()
		if err != nil {
			handleError(err)
			return
		}

		if err := app.Accounts.ChangePassword(context.Background(), app.Unlock, userID, passphrase); err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintMessage("Passphrase updated"); err != nil {
			handleError(err)
		}
	},
}

// login establishes a session for the acting user within this process.
func login(app *App, userID string) error {
	pass, err := promptPassword("Passphrase: ")
	if err != nil {
		return err
	}
	defer pass.Clear()

	passphrase, err := pass.String()
	if err != nil {
		return err
	}
	return app.Accounts.Login(context.Background(), app.Unlock, userID, passphrase)
}
