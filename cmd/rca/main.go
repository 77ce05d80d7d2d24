package main

import (
	"os"

	"github.com/Chandanbam/openstack-rca-system/cmd/rca/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
