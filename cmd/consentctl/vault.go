package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hushh-labs/consent-core/cmd/flags"
	"github.com/hushh-labs/consent-core/cryptoutils"
	"github.com/hushh-labs/consent-core/interfaces"
	"github.com/hushh-labs/consent-core/storage"
	"github.com/hushh-labs/consent-core/vault"
)

// VaultPassphraseEnv names the environment variable carrying the vault
// passphrase.
const VaultPassphraseEnv = "CONSENT_VAULT_PASSPHRASE"

var flagUser *cli.StringFlag = &cli.StringFlag{
	Name:     "user",
	Required: true,
	Usage:    "user the key material belongs to",
}
var flagStore *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:    "store",
	Value:   cli.NewStringSlice("file://vault-data"),
	Usage:   "storage backend URI (file, s3, vault or ipfs); repeat for replicated writes",
	EnvVars: []string{"CONSENT_VAULT_STORE"},
}
var flagShare *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:  "share",
	Usage: "base64 recovery share; repeat to meet the threshold",
}
var flagRecoveryCode *cli.StringFlag = &cli.StringFlag{
	Name:  "code",
	Usage: "hex recovery code, as an alternative to shares",
}
var flagShowCode *cli.BoolFlag = &cli.BoolFlag{
	Name:  "show-code",
	Usage: "print the reassembled recovery code",
}

var vaultCommand = &cli.Command{
	Name:  "vault",
	Usage: "Manage vault key material",
	Subcommands: []*cli.Command{
		{
			Name:   "init",
			Usage:  "Create key material for a user and print the recovery kit",
			Flags:  []cli.Flag{flagUser, flagStore},
			Action: runVaultInit,
		},
		{
			Name:   "unlock",
			Usage:  "Verify the passphrase opens the stored key material",
			Flags:  []cli.Flag{flagUser, flagStore},
			Action: runVaultUnlock,
		},
		{
			Name:   "recover",
			Usage:  "Reassemble the recovery code from shares and verify it opens the key material",
			Flags:  []cli.Flag{flagUser, flagStore, flagShare, flagRecoveryCode, flagShowCode},
			Action: runVaultRecover,
		},
	},
}

func runVaultInit(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	userID := cCtx.String(flagUser.Name)

	passphrase, err := loadPassphrase()
	if err != nil {
		return err
	}

	store, err := openStore(cCtx, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()

	if _, err := vault.LoadKeyMaterial(ctx, store, userID); err == nil {
		return fmt.Errorf("key material already exists for %s", userID)
	} else if !errors.Is(err, interfaces.ErrMissingKeyMaterial) {
		return err
	}

	material, kit, err := vault.NewKeyMaterial(passphrase)
	if err != nil {
		return err
	}

	if err := vault.SaveKeyMaterial(ctx, store, userID, material); err != nil {
		return err
	}

	logger.Info("Vault initialized", slog.String("user", userID))

	fmt.Println("Recovery kit, shown exactly once. Store the code and the shares separately, offline.")
	fmt.Printf("recovery-code: %s\n", kit.Code)
	for i, share := range kit.Shares {
		fmt.Printf("share-%d: %s\n", i+1, base64.StdEncoding.EncodeToString(share))
	}
	return nil
}

func runVaultUnlock(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	userID := cCtx.String(flagUser.Name)

	passphrase, err := loadPassphrase()
	if err != nil {
		return err
	}

	store, err := openStore(cCtx, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()

	material, err := vault.LoadKeyMaterial(ctx, store, userID)
	if err != nil {
		return err
	}

	key, err := vault.Unlock(material, passphrase)
	if err != nil {
		return err
	}
	cryptoutils.Zero(key)

	logger.Info("Key material verified", slog.String("user", userID))
	fmt.Println("unlocked")
	return nil
}

func runVaultRecover(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	userID := cCtx.String(flagUser.Name)

	code := cCtx.String(flagRecoveryCode.Name)
	if code == "" {
		encoded := cCtx.StringSlice(flagShare.Name)
		if len(encoded) == 0 {
			return fmt.Errorf("recovery input required: set --%s or --%s", flagShare.Name, flagRecoveryCode.Name)
		}

		shares := make([][]byte, 0, len(encoded))
		for _, e := range encoded {
			share, err := base64.StdEncoding.DecodeString(e)
			if err != nil {
				return fmt.Errorf("could not decode share: %w", err)
			}
			shares = append(shares, share)
		}

		combined, err := vault.CombineRecoveryShares(shares)
		if err != nil {
			return err
		}
		code = combined
	}

	store, err := openStore(cCtx, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()

	material, err := vault.LoadKeyMaterial(ctx, store, userID)
	if err != nil {
		return err
	}

	key, err := vault.UnlockWithRecovery(material, code)
	if err != nil {
		return err
	}
	cryptoutils.Zero(key)

	logger.Info("Recovery verified", slog.String("user", userID))
	fmt.Println("recovered")
	if cCtx.Bool(flagShowCode.Name) {
		fmt.Printf("recovery-code: %s\n", code)
	}
	return nil
}

func loadPassphrase() (string, error) {
	passphrase := os.Getenv(VaultPassphraseEnv)
	if passphrase == "" {
		return "", fmt.Errorf("passphrase missing: set %s", VaultPassphraseEnv)
	}
	return passphrase, nil
}

func openStore(cCtx *cli.Context, logger *slog.Logger) (interfaces.BlobStore, error) {
	uris := cCtx.StringSlice(flagStore.Name)
	locations := make([]interfaces.BlobLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewBlobLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}

	factory := storage.NewFactory(logger)
	if len(locations) == 1 {
		return factory.StoreFor(locations[0])
	}
	return factory.MultiStoreFor(locations)
}
