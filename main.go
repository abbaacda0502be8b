package main

import "tutobot/cmd"

func main() {
	cmd.Execute()
}
