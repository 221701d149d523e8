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
	"os"

	"github.com/spf13/cobra"
)

// taskCmd groups encrypted task commands
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage encrypted tasks",
	Long: `Create, read, and update task records. Title and description are
encrypted under the owner's content key before they hit storage; the
acting user authenticates with their passphrase, and grantees can read
and update tasks shared with them via --owner.`,
}

// taskAddCmd creates a new encrypted task
var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task owned by the acting user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID := requireUser()
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		description, _ := cmd.Flags().GetString("description")
		status, _ := cmd.Flags().GetString("status")

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		if err := login(app, userID); err != nil {
			handleError(err)
			return
		}

		task, err := app.Tasks.Create(context.Background(), userID, args[0], description, status)
		if err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintTask(task); err != nil {
			handleError(err)
		}
	},
}

// taskListCmd lists decrypted tasks
var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks readable by the acting user",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		userID := requireUser()
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		ownerID, _ := cmd.Flags().GetString("owner")
		if ownerID == "" {
			ownerID = userID
		}

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		if err := login(app, userID); err != nil {
			handleError(err)
			return
		}

		list, err := app.Tasks.List(context.Background(), userID, ownerID)
		if err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintTaskList(list); err != nil {
			handleError(err)
		}
	},
}

// taskShowCmd shows one decrypted task
var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task decrypted for the acting user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID := requireUser()
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		ownerID, _ := cmd.Flags().GetString("owner")
		if ownerID == "" {
			ownerID = userID
		}

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		if err := login(app, userID); err != nil {
			handleError(err)
			return
		}

		task, err := app.Tasks.Get(context.Background(), userID, ownerID, args[0])
		if err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintTask(task); err != nil {
			handleError(err)
		}
	},
}

// taskUpdateCmd rewrites a task's fields
var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id> <title>",
	Short: "Update a task's encrypted fields",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		userID := requireUser()
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		ownerID, _ := cmd.Flags().GetString("owner")
		if ownerID == "" {
			ownerID = userID
		}
		description, _ := cmd.Flags().GetString("description")
		status, _ := cmd.Flags().GetString("status")

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		if err := login(app, userID); err != nil {
			handleError(err)
			return
		}

		task, err := app.Tasks.Update(context.Background(), userID, ownerID, args[0], args[1], description, status)
		if err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintTask(task); err != nil {
			handleError(err)
		}
	},
}

// taskDeleteCmd removes a task
var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete one of the acting user's tasks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID := requireUser()
		opts := getOptions()
		printer := NewPrinter(opts.OutputFormat, os.Stdout)

		app, err := newApp(opts)
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = app.Close() }()

		if err := app.Tasks.Delete(userID, args[0]); err != nil {
			handleError(err)
			return
		}
		if err := printer.PrintMessage("Task deleted"); err != nil {
			handleError(err)
		}
	},
}

func init() {
	taskAddCmd.Flags().StringP("description", "d", "", "task description")
	taskAddCmd.Flags().StringP("status", "s", "open", "task status")

	taskListCmd.Flags().String("owner", "", "list another user's tasks shared with you")
	taskShowCmd.Flags().String("owner", "", "task owner when reading a shared task")

	taskUpdateCmd.Flags().String("owner", "", "task owner when updating a shared task")
	taskUpdateCmd.Flags().StringP("description", "d", "", "task description")
	taskUpdateCmd.Flags().StringP("status", "s", "", "task status")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}
