package main

import (
	"surveyrunner/cmd/surveyrunner/commands"
	"surveyrunner/lib/osutil"
)

func main() {
	commands.ExecuteContext(osutil.SignalContext())
}
