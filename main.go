package main

import "github.com/hanpf2391/Flux/cmd"

func main() {
	cmd.Execute()
}
