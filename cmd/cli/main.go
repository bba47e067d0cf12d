package main

import "github.com/keurnel/mttn/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
