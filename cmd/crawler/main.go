// Command crawler is countpkg's CLI: crawl GitHub for a package
// ecosystem's footprint, run database migrations, render reports, and
// watch a live crawl.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
