package main

import "github.com/mvp-joe/symtree/internal/cli"

func main() {
	cli.Execute()
}
