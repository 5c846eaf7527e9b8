package main

import (
	"gradewatch/cmd/gradewatch/commands"
	"gradewatch/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
