// shaper learns the shape of labelled strings and classifies new ones.
package main

import (
	"os"

	"github.com/cognicore/shaper/cmd/shaper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
