package main

import "github.com/enviromon/enviromon/internal/cli"

func main() {
	cli.Execute()
}
