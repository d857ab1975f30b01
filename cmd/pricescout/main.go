// cmd/pricescout/main.go

package main

import "github.com/pricescout/pricescout/internal/cli"

func main() {
	cli.Execute()
}
