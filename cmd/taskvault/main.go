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

package main

import (
	"fmt"
	"os"

	"github.com/taskvault/go-taskvault/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
