package main

import "trackmeet/cmd/server/cmd"

func main() {
	cmd.Execute()
}
