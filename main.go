package main

import "cdnbench/cmd"

func main() {
	cmd.Execute()
}
