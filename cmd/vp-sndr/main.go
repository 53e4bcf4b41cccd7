package main

import (
	"github.com/Velaseriat/vp-link/cmd/vp-sndr/commands"
)

func main() {
	commands.Execute()
}
