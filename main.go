package main

import "github.com/ELBIXishere/aidd/internal/cmd"

func main() {
	cmd.Execute()
}
