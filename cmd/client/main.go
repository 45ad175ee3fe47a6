package main

import (
	"flashcards/internal/client/cli"
	"flashcards/internal/client/tui"
)

// APIURL is set via ldflags during build. e.g. -X main.APIURL=https://cards.example.com/api
var APIURL = ""

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	tui.Version = Version
	cli.Init(APIURL)
	cli.Execute()
}
