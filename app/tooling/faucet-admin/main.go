// This program provides admin tooling for operating the faucet, such as
// generating key files and requesting accounts from a running service.
package main

import "github.com/statelessnet/faucet/app/tooling/faucet-admin/commands"

func main() {
	commands.Execute()
}
