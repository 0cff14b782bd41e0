package main

import "github.com/udisondev/rtp/internal/cli"

func main() {
	cli.Execute()
}
