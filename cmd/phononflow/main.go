package main

import (
	"os"

	"github.com/G-Research/phononflow/cmd/phononflow/cmd"
	"github.com/G-Research/phononflow/internal/common"
	"github.com/G-Research/phononflow/internal/common/flowerrors"
)

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()
	err := cmd.RootCmd().Execute()
	os.Exit(flowerrors.ExitCodeFromError(err))
}
