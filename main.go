package main

import "github.com/reviewbooth/reviewbooth/cmd"

func main() {
	cmd.Execute()
}
