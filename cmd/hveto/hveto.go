// Command hveto runs the hierarchical veto analysis over pre-generated
// trigger files and writes veto segments plus an audit ledger.
package main

import (
	"github.com/gwdetchar/hveto/cmd/hveto/cmd"
)

func main() {
	cmd.Execute()
}
