package main

import "github.com/Jcruzb/controlants/cmd"

func main() {
	cmd.Execute()
}
