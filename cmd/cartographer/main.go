// cmd/cartographer/main.go
//
// Entry point for the cartographer CLI. All commands live in internal/cli.

package main

import "github.com/kingrea/cartographer/internal/cli"

func main() {
	cli.Execute()
}
