// The consentctl command issues, validates and revokes consent tokens and
// trust links, and manages vault key material, from the command line.
// Signing and vault secrets come from the environment, never from argv.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hushh-labs/consent-core/cmd/flags"
)

func main() {
	app := &cli.App{
		Name:  "consentctl",
		Usage: "Operate consent tokens, trust links and vault key material",
		Flags: flags.CommonFlags,
		Commands: []*cli.Command{
			secretCommand,
			tokenCommand,
			trustlinkCommand,
			vaultCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
