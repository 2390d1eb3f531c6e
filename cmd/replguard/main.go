package main

import "github.com/semmidev/replguard/cmd/replguard/cmd"

func main() {
	cmd.Execute()
}
