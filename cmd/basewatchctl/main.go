// Package main is the entry point for the basewatchctl operator tool.
package main

import "github.com/huangang/basewatch/internal/cli"

func main() {
	cli.Execute()
}
