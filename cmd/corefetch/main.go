package main

import "github.com/scraptool/corefetch/internal/cli"

func main() {
	cli.Execute()
}
