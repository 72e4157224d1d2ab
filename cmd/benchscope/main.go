package main

import (
	"os"

	"github.com/calderbuild/BenchScope/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
