package main

import "github.com/skatamatic/blulok-cloud-sub001/cmd"

func main() {
	cmd.Execute()
}
