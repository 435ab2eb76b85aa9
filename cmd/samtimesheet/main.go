package main

import (
	"samtimesheet/cmd/samtimesheet/commands"
	"samtimesheet/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
