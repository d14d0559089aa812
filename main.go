package main

import (
	"os"

	"github.com/weizhangcs/vss-cloud/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
