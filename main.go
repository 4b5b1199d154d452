// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ragchat is a terminal client for a retrieval-augmented chat service and its
// QLoRA training endpoint.
package main

import (
	"os"

	"github.com/jeranaias/ragchat/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
