// cmd/main.go is the application entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Shivanand-hulikatti/festival-booking/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
