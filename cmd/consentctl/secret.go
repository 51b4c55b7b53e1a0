package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hushh-labs/consent-core/consent"
)

var flagSecretBytes *cli.IntFlag = &cli.IntFlag{
	Name:  "bytes",
	Value: 32,
	Usage: "secret length in bytes",
}

var secretCommand = &cli.Command{
	Name:  "secret",
	Usage: "Manage signing secrets",
	Subcommands: []*cli.Command{
		{
			Name:  "generate",
			Usage: "Generate a random secret suitable for " + consent.SigningSecretEnv,
			Flags: []cli.Flag{flagSecretBytes},
			Action: func(cCtx *cli.Context) error {
				n := cCtx.Int(flagSecretBytes.Name)
				if n < consent.MinSecretLength {
					return fmt.Errorf("secret must be at least %d bytes", consent.MinSecretLength)
				}

				secret := make([]byte, n)
				if _, err := rand.Read(secret); err != nil {
					return fmt.Errorf("could not generate secret: %w", err)
				}

				fmt.Println(hex.EncodeToString(secret))
				return nil
			},
		},
	},
}
