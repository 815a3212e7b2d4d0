package main

import "github.com/aegisgraph/aegisgraph/internal/cli"

func main() {
	cli.Execute()
}
