package main

import "github.com/osuripple/fokabot/cmd"

func main() {
	cmd.Execute()
}
