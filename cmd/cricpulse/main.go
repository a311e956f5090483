package main

import "github.com/pfrederiksen/cricpulse/internal/cli"

func main() {
	cli.Execute()
}
