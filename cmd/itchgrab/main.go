// Package main provides the entry point for the itchgrab CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/itchgrab/itchgrab/internal/cli"
	"github.com/itchgrab/itchgrab/internal/models"
)

const exitAuth = 3

func main() {
	if err := cli.Execute(); err != nil {
		var ee *cli.ExitError
		if errors.As(err, &ee) {
			os.Exit(ee.Code)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var te *models.TaskError
		if errors.As(err, &te) && te.Kind == models.ErrKindAuth {
			os.Exit(exitAuth)
		}
		os.Exit(1)
	}
}
