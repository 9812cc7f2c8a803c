// Command authgate runs the authentication service.
package main

import "github.com/MrEthical07/authgate/cmd/authgate/cmd"

func main() {
	cmd.Execute()
}
