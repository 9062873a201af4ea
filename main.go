package main

import "github.com/seekr-cli/seekr/cmd"

func main() {
	cmd.Execute()
}
