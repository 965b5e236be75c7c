package main

import (
	"fmt"
	"os"

	"github.com/crust-proxy/crust/cmd/crust"
)

func main() {
	if err := crust.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
