// Veritas - URL and message risk scoring for scam detection.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"fmt"
	"os"

	"github.com/opensource-finance/veritas/internal/cli"
)

// Version information (set via ldflags)
var Version = "dev"

func main() {
	if err := cli.NewRoot(Version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
