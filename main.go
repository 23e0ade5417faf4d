package main

import "github.com/rendello/TTD2-Bot/cmd"

func main() {
	cmd.Execute()
}
