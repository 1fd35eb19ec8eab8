package main

import (
	"math/rand"
	"time"

	"github.com/cvaske/sonLib/cmd"
)

func main() {
	// Random file names and the random record generators both go through
	// the global source.
	rand.Seed(time.Now().UnixNano())

	cmd.Execute()
}
