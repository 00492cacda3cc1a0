// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Command rijndael encrypts and decrypts hex encoded messages with the
// rijndael package, optionally dumping every intermediate state.
package main

import (
	"fmt"
	"os"

	"gitlab.com/yawning/rijndael.git/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rijndael:", err)
		os.Exit(1)
	}
}
