package main

import "github.com/vietddude/fluxgen/internal/cli"

func main() {
	cli.Execute()
}
