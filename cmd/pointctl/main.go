package main

import "pointlist/internal/cli"

func main() {
	cli.Execute()
}
