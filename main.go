package main

import "membercrm/cmd"

func main() {
	cmd.Execute()
}
