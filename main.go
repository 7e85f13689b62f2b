package main

import "github.com/prepterm/prepterm/cmd"

func main() {
	cmd.Execute()
}
