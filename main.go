package main

import "github.com/naka-gawa/github-timeline/cmd"

func main() {
	cmd.Execute()
}
