package main

import "github.com/andrescamacho/artifacts-go/internal/adapters/cli"

func main() {
	cli.Execute()
}
