// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// waitlistd-report is an offline diagnostic CLI for a waitlistd SQLite
// store: it checks the database file for structural corruption and
// prints the result of that check.
//
// Usage:
//
//	waitlistd-report -db /var/lib/waitlistd/store.db
//	waitlistd-report -db /var/lib/waitlistd/store.db -mode full
//
// Exit codes:
//   - 0: database is healthy
//   - 1: corruption detected or the check itself failed
//   - 2: usage error
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ManuGH/waitlistd/internal/persistence/sqlite"
)

func main() {
	var dbPath, mode string
	flag.StringVar(&dbPath, "db", "", "path to the waitlistd SQLite database file")
	flag.StringVar(&mode, "mode", "quick", "integrity check mode: quick or full")
	flag.Parse()

	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -db is required")
		os.Exit(2)
	}
	if mode != "quick" && mode != "full" {
		fmt.Fprintf(os.Stderr, "Error: -mode must be \"quick\" or \"full\", got %q\n", mode)
		os.Exit(2)
	}

	problems, err := sqlite.VerifyIntegrity(dbPath, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integrity check failed: %v\n", err)
		os.Exit(1)
	}
	if len(problems) > 0 {
		fmt.Fprintf(os.Stderr, "%s: corruption detected (%s check):\n", dbPath, mode)
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
		os.Exit(1)
	}

	fmt.Printf("%s: ok (%s check)\n", dbPath, mode)
}
