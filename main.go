package main

import (
	"fmt"
	"os"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-stepsampler/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
