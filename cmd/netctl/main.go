// Command netctl inspects and converts social network command logs.
//
// Usage:
//
//	netctl [flags] <command> <log> [args]
//
// Commands:
//
//	stats       - Users, friendships, and components in a log
//	friends     - Friends of one user
//	path        - Shortest friendship chain between two users
//	mutual      - Friends two users share
//	components  - Connected groups of users
//	component   - Everyone connected to one user
//	convert     - Rewrite a log as json, yaml, msgpack, or a compacted log
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
