// Inventory-agent is the machine-inventory charm's hook implementation
// and operator CLI.
package main

import "github.com/charmsmith/charmsmith/cmd/inventory-agent/internal/cli"

func main() {
	cli.Execute()
}
