package main

import "github.com/jmehdipour/notify-redirector/cmd"

func main() {
	cmd.Execute()
}
