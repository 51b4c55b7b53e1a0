package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hushh-labs/consent-core/api/consentclient"
	"github.com/hushh-labs/consent-core/cmd/flags"
	"github.com/hushh-labs/consent-core/consent"
	"github.com/hushh-labs/consent-core/discovery"
	"github.com/hushh-labs/consent-core/interfaces"
	"github.com/hushh-labs/consent-core/revocation"
)

// networkTimeout bounds every remote call a subcommand makes.
const networkTimeout = 30 * time.Second

var flagSubject *cli.StringFlag = &cli.StringFlag{
	Name:     "subject",
	Required: true,
	Usage:    "user whose data the token covers",
}
var flagGrantee *cli.StringFlag = &cli.StringFlag{
	Name:     "grantee",
	Required: true,
	Usage:    "agent or application receiving access",
}
var flagScope *cli.StringFlag = &cli.StringFlag{
	Name:     "scope",
	Required: true,
	Usage:    "capability scope, e.g. attr.food.dietary",
}
var flagExpectedScope *cli.StringFlag = &cli.StringFlag{
	Name:  "scope",
	Usage: "scope the token must carry exactly; empty accepts any scope",
}
var flagTTL *cli.DurationFlag = &cli.DurationFlag{
	Name:  "ttl",
	Value: consent.DefaultTokenTTL,
	Usage: "lifetime of the issued token or trust link",
}
var flagToken *cli.StringFlag = &cli.StringFlag{
	Name:     "token",
	Required: true,
	Usage:    "consent token wire string",
}

var flagPostgresDSN *cli.StringFlag = &cli.StringFlag{
	Name:    "postgres-dsn",
	Usage:   "PostgreSQL DSN of the durable revocation registry",
	EnvVars: []string{"CONSENT_POSTGRES_DSN"},
}
var flagConsentAddr *cli.StringFlag = &cli.StringFlag{
	Name:    "consent-addr",
	Usage:   "base URL of a consent service to use as revocation backend",
	EnvVars: []string{"CONSENT_SERVICE_ADDR"},
}
var flagConsentDomain *cli.StringFlag = &cli.StringFlag{
	Name:    "consent-domain",
	Usage:   "domain whose consent service is discovered via DNS SRV and addressed over http",
	EnvVars: []string{"CONSENT_SERVICE_DOMAIN"},
}
var flagDNSResolver *cli.StringFlag = &cli.StringFlag{
	Name:    "dns-resolver",
	Value:   discovery.DefaultResolverAddr,
	Usage:   "DNS resolver address for SRV discovery",
	EnvVars: []string{"CONSENT_DNS_RESOLVER"},
}

// registryFlags select the revocation backends a subcommand consults.
var registryFlags = []cli.Flag{
	flagPostgresDSN,
	flagConsentAddr,
	flagConsentDomain,
	flagDNSResolver,
}

var tokenCommand = &cli.Command{
	Name:  "token",
	Usage: "Issue, validate and revoke consent tokens",
	Subcommands: []*cli.Command{
		{
			Name:   "issue",
			Usage:  "Issue a signed consent token",
			Flags:  []cli.Flag{flagSubject, flagGrantee, flagScope, flagTTL},
			Action: runTokenIssue,
		},
		{
			Name:   "validate",
			Usage:  "Validate a consent token and print the result",
			Flags:  append([]cli.Flag{flagToken, flagExpectedScope}, registryFlags...),
			Action: runTokenValidate,
		},
		{
			Name:   "revoke",
			Usage:  "Revoke a consent token",
			Flags:  append([]cli.Flag{flagToken}, registryFlags...),
			Action: runTokenRevoke,
		},
	},
}

func runTokenIssue(cCtx *cli.Context) error {
	signer, err := consent.LoadSignerFromEnv()
	if err != nil {
		return err
	}

	token, err := consent.NewIssuer(signer).Issue(
		cCtx.String(flagSubject.Name),
		cCtx.String(flagGrantee.Name),
		interfaces.Scope(cCtx.String(flagScope.Name)),
		cCtx.Duration(flagTTL.Name),
	)
	if err != nil {
		return err
	}

	fmt.Println(consent.EncodeToken(token))
	return nil
}

func runTokenValidate(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

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

	result := validator.Validate(ctx, cCtx.String(flagToken.Name), interfaces.Scope(cCtx.String(flagExpectedScope.Name)))
	printJSON(result)

	if !result.Valid {
		return fmt.Errorf("token is not valid: %s", result.Reason)
	}
	return nil
}

func runTokenRevoke(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()

	registry, selected, err := resolveRegistry(ctx, cCtx, logger)
	if err != nil {
		return err
	}
	if !selected {
		return fmt.Errorf("a revocation backend is required: set --%s, --%s or --%s",
			flagPostgresDSN.Name, flagConsentAddr.Name, flagConsentDomain.Name)
	}

	wire := cCtx.String(flagToken.Name)
	if err := registry.Revoke(ctx, wire); err != nil {
		return fmt.Errorf("could not revoke token: %w", err)
	}

	logger.Info("Token revoked", slog.String("token", interfaces.Fingerprint(wire)))
	fmt.Println("revoked")
	return nil
}

// resolveRegistry builds the revocation registry the flags describe. With no
// backend flag set it returns an empty in-memory registry and selected=false,
// which suits offline validation but not revocation.
func resolveRegistry(ctx context.Context, cCtx *cli.Context, logger *slog.Logger) (registry interfaces.RevocationRegistry, selected bool, err error) {
	var members []interfaces.RevocationRegistry

	if dsn := cCtx.String(flagPostgresDSN.Name); dsn != "" {
		pg, err := revocation.NewPostgresRegistry(dsn, logger)
		if err != nil {
			return nil, false, fmt.Errorf("could not connect revocation registry: %w", err)
		}
		members = append(members, pg)
	}

	addr := cCtx.String(flagConsentAddr.Name)
	if domain := cCtx.String(flagConsentDomain.Name); domain != "" && addr == "" {
		resolver := discovery.NewResolver(cCtx.String(flagDNSResolver.Name), logger)
		endpoint, err := resolver.ConsentEndpoint(ctx, domain)
		if err != nil {
			return nil, false, err
		}
		addr = "http://" + endpoint
	}
	if addr != "" {
		members = append(members, consentclient.NewClient(addr))
	}

	switch len(members) {
	case 0:
		return revocation.NewMemoryRegistry(), false, nil
	case 1:
		return members[0], true, nil
	default:
		composite, err := revocation.NewCompositeRegistry(logger, members...)
		if err != nil {
			return nil, false, err
		}
		return composite, true, nil
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(out))
}
