// SPDX-License-Identifier: MPL-2.0

package main

import cmd "podbox/cmd/podbox"

func main() {
	cmd.Execute()
}
