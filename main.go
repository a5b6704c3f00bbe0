package main

import (
	"fmt"
	"os"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/cmd/api"
)

func main() {
	if err := api.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
