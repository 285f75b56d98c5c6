// Package main is the entry point for the devtask CLI.
package main

import "vistet.dev/pkg/devtask/cmd"

func main() {
	cmd.Execute()
}
