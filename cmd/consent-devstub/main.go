// The consent-devstub command serves an in-memory consent service. It
// mints real signed owner tokens and grant tokens, so clients and vault
// session managers can run end to end without a production deployment.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hushh-labs/consent-core/api/consentclient"
	"github.com/hushh-labs/consent-core/cmd/flags"
	"github.com/hushh-labs/consent-core/consent"
	"github.com/hushh-labs/consent-core/httpserver"
	"github.com/hushh-labs/consent-core/identity"
)

// IdentitySecretEnv names the environment variable carrying the secret
// used to verify identity credentials.
const IdentitySecretEnv = "CONSENT_IDENTITY_SECRET"

// devIdentitySecret verifies credentials in development setups only. It is
// reachable solely with consent.AllowDevSecretEnv explicitly set.
const devIdentitySecret = "hushh-dev-identity-secret-do-not-deploy-01"

var cliFlags = append(append([]cli.Flag{
	&cli.StringFlag{
		Name:    "listen-addr",
		Value:   "127.0.0.1:8080",
		Usage:   "address to listen on for the consent API",
		EnvVars: []string{"CONSENT_LISTEN_ADDR"},
	},
	&cli.StringFlag{
		Name:  "identity-issuer",
		Value: "consent-devstub",
		Usage: "issuer name expected in identity credentials",
	},
}, flags.CommonFlags...), flags.ServerFlags...)

func main() {
	app := &cli.App{
		Name:  "consent-devstub",
		Usage: "Serve an in-memory consent service for development and integration",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String("listen-addr")
			identityIssuer := cCtx.String("identity-issuer")

			logger := flags.SetupLogger(cCtx)

			signer, err := consent.LoadSignerFromEnv()
			if err != nil {
				logger.Error("Failed to load signing secret", "err", err)
				return err
			}

			identitySecret, err := loadIdentitySecret()
			if err != nil {
				logger.Error("Failed to load identity secret", "err", err)
				return err
			}

			verifier, err := identity.NewLocalIssuer(identitySecret, identityIssuer)
			if err != nil {
				logger.Error("Failed to create identity verifier", "err", err)
				return err
			}

			stub, err := consentclient.NewStubService(consent.NewIssuer(signer), verifier, logger)
			if err != nil {
				logger.Error("Failed to create consent service", "err", err)
				return err
			}

			cfg := flags.ConfigureServer(cCtx, logger, listenAddr)
			server, err := httpserver.New(cfg, stub)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadIdentitySecret resolves the credential verification secret from the
// environment, with the same development escape hatch the signer uses.
func loadIdentitySecret() ([]byte, error) {
	if secret := os.Getenv(IdentitySecretEnv); secret != "" {
		return []byte(secret), nil
	}
	if os.Getenv(consent.AllowDevSecretEnv) == "1" {
		return []byte(devIdentitySecret), nil
	}
	return nil, fmt.Errorf("identity secret missing: set %s, or %s=1 for development", IdentitySecretEnv, consent.AllowDevSecretEnv)
}
