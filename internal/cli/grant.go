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

// grantCmd groups content key sharing commands
var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Share content keys with collaborators",
}

// grantAddCmd wraps the acting user's content key for a grantee
var grantAddCmd = &cobra.Command{
	Use:   "add <grantee>",
	Short: "Grant a collaborator access to the acting user's content",
	Long: `Wrap the acting user's content key under the grantee's public key so
they can decrypt shared task fields. The grant goes through escrow and
is recorded in the audit log. Granting twice is a no-op.

Example:
  taskvault --user alice grant add bob`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ownerID := requireUser()
		granteeID := args[0]
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		grant, err := app.Keys.GrantContentKey(context.Background(), app.Unlock, ownerID, granteeID)
		if err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintMessage(fmt.Sprintf("Granted %s access to %s's content (grant %s)",
			granteeID, ownerID, grant.ID)); err != nil {
			handleError(err)
		}
	},
}

// grantListCmd lists grants issued by the acting user
var grantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List grants issued by the acting user",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ownerID := requireUser()
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		grants, err := app.Grants.ListForOwner(ownerID)
		if err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintGrantList(grants); err != nil {
			handleError(err)
		}
	},
}

func init() {
	grantCmd.AddCommand(grantAddCmd)
	grantCmd.AddCommand(grantListCmd)
}
