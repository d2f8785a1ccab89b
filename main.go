package main

import "github.com/frahmantamala/member-management/cmd"

func main() {
	cmd.Execute()
}
