// Command reconcile compares a shopping list file against one or more receipt files.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
