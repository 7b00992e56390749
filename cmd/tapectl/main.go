// Command tapectl inspects, replays and generates market-data tapes.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
