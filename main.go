package main

import "github.com/KaramelBytes/crimelens-cli/cmd"

func main() {
	cmd.Execute()
}
