// nodeid-cli generates avalanchego staking credentials and derives the
// node IDs they commit to.
//
// The derivation is intentionally independent of avalanchego. The compat
// subcommands exist to prove both implementations agree on the same
// certificate.
package main

import (
	"github.com/ava-labs/nodeid-cli/cmd"
)

func main() {
	cmd.Execute()
}
