//go:build headless

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "rttwin: built with the headless tag, no window support; use rtt -out instead")
	os.Exit(1)
}
