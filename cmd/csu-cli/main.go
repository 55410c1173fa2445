package main

import "csuassist/cmd/csu-cli/cmd"

func main() {
	cmd.Execute()
}
