// mech is the Mechanic CLI for supervising self-healing automation agents.
package main

import (
	"os"

	"github.com/steveyegge/mechanic/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
