package main

import "github.com/proseforge/proseforge/cmd"

func main() {
	cmd.Execute()
}
