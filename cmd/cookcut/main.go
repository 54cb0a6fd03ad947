// Package main is the cookcut CLI entry point.
package main

import (
	"context"
	"os"

	"github.com/hyperjump/cookcut/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(context.Background(), version))
}
