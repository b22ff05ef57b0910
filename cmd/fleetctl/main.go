package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fleetsync/internal/fleetctl"
)

func main() {
	if err := fleetctl.Run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, fleetctl.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
