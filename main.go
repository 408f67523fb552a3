package main

import "github.com/Merchously/iRun/cmd"

func main() {
	cmd.Execute()
}
