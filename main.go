package main

import "github.com/Lothnic/Ruty/cmd"

func main() {
	cmd.Execute()
}
