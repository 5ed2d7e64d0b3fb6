package main

import "github.com/bryanchriswhite/wincast/cmd/wincast/commands"

func main() {
	commands.Execute()
}
