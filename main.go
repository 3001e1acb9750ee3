package main

import (
	"github.com/echolag/echolag/cmd"
	"github.com/echolag/echolag/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
