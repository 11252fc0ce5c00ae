package main

import "github/itish2003/ragchat/cli"

func main() {
	cli.Execute()
}
