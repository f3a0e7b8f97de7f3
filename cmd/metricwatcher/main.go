package main

import (
	"metric-insights/internal/cli"
)

func main() {
	cli.Execute()
}
