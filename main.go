package main

import "github.com/user/signalhub/cmd"

func main() {
	cmd.Execute()
}
