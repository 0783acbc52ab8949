// Command mddb is the command-line client for an MDDB server.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env до флагов: MDDB_URL и MDDB_API_KEY становятся их значениями по умолчанию
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
