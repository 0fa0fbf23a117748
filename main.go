package main

import (
	"fmt"
	"os"

	"spt-installer/cmd"
	"spt-installer/logger"

	_ "go.uber.org/automaxprocs/maxprocs"
)

func main() {
	if err := logger.InitLogger(logger.DefaultLogFile); err != nil {
		fmt.Fprintln(os.Stderr, "logging disabled:", err)
	}
	defer logger.Sync()
	cmd.Execute()
}
