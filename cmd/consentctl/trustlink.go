package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hushh-labs/consent-core/api"
	"github.com/hushh-labs/consent-core/cmd/flags"
	"github.com/hushh-labs/consent-core/consent"
	"github.com/hushh-labs/consent-core/interfaces"
)

var flagFromAgent *cli.StringFlag = &cli.StringFlag{
	Name:     "from",
	Required: true,
	Usage:    "delegating agent",
}
var flagToAgent *cli.StringFlag = &cli.StringFlag{
	Name:     "to",
	Required: true,
	Usage:    "delegate agent",
}
var flagSignedBy *cli.StringFlag = &cli.StringFlag{
	Name:     "signed-by",
	Required: true,
	Usage:    "user countersigning the delegation",
}
var flagLink *cli.StringFlag = &cli.StringFlag{
	Name:  "link",
	Usage: "trust link JSON",
}
var flagLinkFile *cli.StringFlag = &cli.StringFlag{
	Name:  "link-file",
	Usage: "path to a trust link JSON file",
}

var trustlinkCommand = &cli.Command{
	Name:  "trustlink",
	Usage: "Issue and verify agent-to-agent delegations",
	Subcommands: []*cli.Command{
		{
			Name:   "issue",
			Usage:  "Issue a countersigned trust link",
			Flags:  []cli.Flag{flagFromAgent, flagToAgent, flagScope, flagSignedBy, flagTTL},
			Action: runTrustlinkIssue,
		},
		{
			Name:   "verify",
			Usage:  "Verify a trust link and print the result",
			Flags:  append([]cli.Flag{flagLink, flagLinkFile, flagExpectedScope}, registryFlags...),
			Action: runTrustlinkVerify,
		},
	},
}

func runTrustlinkIssue(cCtx *cli.Context) error {
	signer, err := consent.LoadSignerFromEnv()
	if err != nil {
		return err
	}

	link, err := consent.NewIssuer(signer).IssueTrustLink(
		cCtx.String(flagFromAgent.Name),
		cCtx.String(flagToAgent.Name),
		interfaces.Scope(cCtx.String(flagScope.Name)),
		cCtx.String(flagSignedBy.Name),
		cCtx.Duration(flagTTL.Name),
	)
	if err != nil {
		return err
	}

	printJSON(link)
	return nil
}

func runTrustlinkVerify(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	link, err := loadTrustLink(cCtx)
	if err != nil {
		return err
	}

	signer, err := consent.LoadSignerFromEnv()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()

	registry, _, err := resolveRegistry(ctx, cCtx, logger)
	if err != nil {
		return err
	}
	validator, err := consent.NewValidator(signer, registry, logger)
	if err != nil {
		return err
	}

	result := validator.ValidateTrustLink(ctx, link, interfaces.Scope(cCtx.String(flagExpectedScope.Name)))
	printJSON(result)

	if !result.Valid {
		return fmt.Errorf("trust link is not valid: %s", result.Reason)
	}
	return nil
}

func loadTrustLink(cCtx *cli.Context) (interfaces.TrustLink, error) {
	raw := cCtx.String(flagLink.Name)
	if path := cCtx.String(flagLinkFile.Name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return interfaces.TrustLink{}, fmt.Errorf("could not read trust link: %w", err)
		}
		raw = string(data)
	}
	if raw == "" {
		return interfaces.TrustLink{}, fmt.Errorf("a trust link is required: set --%s or --%s", flagLink.Name, flagLinkFile.Name)
	}

	var link interfaces.TrustLink
	if err := api.DecodeStrict(strings.NewReader(raw), &link); err != nil {
		return interfaces.TrustLink{}, err
	}
	return link, nil
}
