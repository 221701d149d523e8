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
	"encoding/json"
	"fmt"
	"io"

	"github.com/taskvault/go-taskvault/pkg/tasks"
	"github.com/taskvault/go-taskvault/pkg/vault"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintMessage prints a status message
func (p *Printer) PrintMessage(msg string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "ok",
			"message": msg,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, msg)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintVault prints the public parts of a key vault row. Private key and
// backup key material never reach the terminal.
func (p *Printer) PrintVault(userID string, kv *vault.KeyVault) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"user":        userID,
			"fingerprint": kv.Fingerprint,
			"public_key":  kv.PublicKey,
			"has_backup":  kv.BackupKey != "",
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "User:        %s\n", userID)
		fmt.Fprintf(p.writer, "Fingerprint: %s\n", kv.Fingerprint)
		fmt.Fprintf(p.writer, "Escrowed:    %t\n", kv.BackupKey != "")
		fmt.Fprintf(p.writer, "Public key:\n%s", kv.PublicKey)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintGrantList prints content key grant rows
func (p *Printer) PrintGrantList(grants []*vault.ContentKeyGrant) error {
	switch p.format {
	case OutputFormatJSON:
		list := make([]map[string]interface{}, len(grants))
		for i, g := range grants {
			list[i] = map[string]interface{}{
				"id":         g.ID,
				"owner":      g.OwnerID,
				"grantee":    g.GranteeID,
				"created_at": g.CreatedAt,
			}
		}
		return p.printJSON(map[string]interface{}{"grants": list})
	case OutputFormatText:
		if len(grants) == 0 {
			fmt.Fprintln(p.writer, "No grants found")
			return nil
		}
		fmt.Fprintln(p.writer, "Grants:")
		for _, g := range grants {
			fmt.Fprintf(p.writer, "  - %s -> %s (%s)\n",
				g.OwnerID, g.GranteeID, g.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintTask prints a single decrypted task
func (p *Printer) PrintTask(task *tasks.Task) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(task)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "ID:          %s\n", task.ID)
		fmt.Fprintf(p.writer, "Owner:       %s\n", task.OwnerID)
		fmt.Fprintf(p.writer, "Title:       %s\n", task.Title)
		if task.Description != "" {
			fmt.Fprintf(p.writer, "Description: %s\n", task.Description)
		}
		fmt.Fprintf(p.writer, "Status:      %s\n", task.Status)
		fmt.Fprintf(p.writer, "Updated:     %s\n", task.UpdatedAt.Format("2006-01-02 15:04:05"))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintTaskList prints decrypted tasks
func (p *Printer) PrintTaskList(list []*tasks.Task) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{"tasks": list})
	case OutputFormatText:
		if len(list) == 0 {
			fmt.Fprintln(p.writer, "No tasks found")
			return nil
		}
		for _, task := range list {
			fmt.Fprintf(p.writer, "  [%s] %s (%s)\n", task.Status, task.Title, task.ID)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
