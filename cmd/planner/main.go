// Command planner is a terminal client for the day planner. It runs against
// the local store or the REST service, whichever the config selects.
package main

import (
	"fmt"
	"os"
)

var Version = "dev"

func main() {
	c := &cli{}
	err := newRootCmd(c).Execute()
	if cerr := c.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
