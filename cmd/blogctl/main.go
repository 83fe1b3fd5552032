package main

import "github.com/example/inkpress/cmd/blogctl/commands"

func main() {
	commands.Execute()
}
