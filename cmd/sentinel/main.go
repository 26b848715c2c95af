package main

import "github.com/openshelf/stock-sentinel/internal/cli"

func main() {
	cli.Execute()
}
