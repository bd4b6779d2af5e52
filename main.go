package main

import "github.com/netsonde/synthctl/cmd"

func main() {
	cmd.Execute()
}
