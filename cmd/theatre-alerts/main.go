package main

import "github.com/pfrederiksen/theatre-alerts/internal/cli"

func main() {
	cli.Execute()
}
