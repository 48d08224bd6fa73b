// Command statcraft catalogs, stores and simulates game stats.
package main

import "github.com/mesh-intelligence/statcraft/internal/cli"

func main() {
	cli.Execute()
}
