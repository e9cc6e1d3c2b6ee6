package main

import (
	"context"
	"fmt"
	"os"

	"stm/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "stm: %v\n", err)
		os.Exit(1)
	}
}
