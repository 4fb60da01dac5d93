package main

import (
	"github.com/notedrill/notedrill/cmd"
	"github.com/notedrill/notedrill/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
