// Charmsmith builds, deploys, and watches reactive charms.
package main

import "github.com/charmsmith/charmsmith/cmd/charmsmith/internal/cli"

func main() {
	cli.Execute()
}
