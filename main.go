package main

import "github.com/drmkeys/backend-go/cmd"

func main() {
	cmd.Execute()
}
