package main

import "github.com/tpodg/backchannel/internal/cli"

func main() {
	cli.Execute()
}
