package main

import "focusflow/backend/internal/cli"

func main() {
	cli.Execute()
}
