package main

import "github.com/munichmade/hostsctl/cmd/hostsctl/cmd"

func main() {
	cmd.Execute()
}
