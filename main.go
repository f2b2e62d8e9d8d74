// SPDX-License-Identifier: MPL-2.0

// Command phaser resolves and runs phased CI pipelines.
package main

import "github.com/phaserci/phaser/cmd/phaser"

func main() {
	cmd.Execute()
}
