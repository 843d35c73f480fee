package main

import "gitsink/cmd"

func main() {
	cmd.Execute()
}
