package main

import "github.com/pelosub/pelosub/cmd"

func main() {
	cmd.Execute()
}
