package main

import (
	"context"
	"os"

	"github.com/michaelpento.lv/arbwatch/cmd"
	"github.com/michaelpento.lv/arbwatch/utils"
)

func main() {
	defer utils.CleanupLogger()

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
