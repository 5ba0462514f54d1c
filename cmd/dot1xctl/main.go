// dot1xctl -- CLI client for the dot1xd authenticator daemon.
package main

import "github.com/go8021x/go8021x/cmd/dot1xctl/commands"

func main() {
	commands.Execute()
}
