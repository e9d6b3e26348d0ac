package main

import "github.com/mselser95/swap-arb/cmd"

func main() {
	cmd.Execute()
}
