// pollbuild runs a build command whenever the newest modification time of
// a set of files changes.
package main

import (
	"os"

	"github.com/hupe1980/pollbuild/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
