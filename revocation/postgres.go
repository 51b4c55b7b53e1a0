package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hushh-labs/consent-core/interfaces"
)

// RevokedCredential is the persistence model. Only the SHA-256 of a
// credential is stored; the revocation table must not double as an archive
// of live bearer tokens.
type RevokedCredential struct {
	ID             uint      `gorm:"primaryKey"`
	CredentialHash string    `gorm:"uniqueIndex;size:64;not null"`
	RevokedAt      time.Time `gorm:"not null"`
}

// TableName sets the table name for the model.
func (RevokedCredential) TableName() string {
	return "revoked_credentials"
}

// PostgresRegistry is a durable revocation store shared across client
// instances, backed by the same database the consent service uses for grant
// bookkeeping.
type PostgresRegistry struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewPostgresRegistry connects to the database, verifies the connection and
// migrates the revocation schema.
func NewPostgresRegistry(dsn string, log *slog.Logger) (*PostgresRegistry, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return NewPostgresRegistryWithDB(db, log)
}

// NewPostgresRegistryWithDB wraps an existing connection, for shared pools
// and tests. Runs schema migration.
func NewPostgresRegistryWithDB(db *gorm.DB, log *slog.Logger) (*PostgresRegistry, error) {
	if err := db.AutoMigrate(&RevokedCredential{}); err != nil {
		return nil, fmt.Errorf("failed to migrate revocation schema: %w", err)
	}
	return &PostgresRegistry{db: db, log: log}, nil
}

// Revoke records a revocation. Idempotent: re-revoking an already revoked
// credential succeeds without a duplicate row.
func (r *PostgresRegistry) Revoke(ctx context.Context, credential string) error {
	record := RevokedCredential{
		CredentialHash: credentialHash(credential),
		RevokedAt:      time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to record revocation: %w", err)
	}

	r.log.Info("Credential revoked",
		slog.String("credential", interfaces.Fingerprint(credential)))
	return nil
}

// IsRevoked reports whether the credential's hash is present.
func (r *PostgresRegistry) IsRevoked(ctx context.Context, credential string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&RevokedCredential{}).
		Where("credential_hash = ?", credentialHash(credential)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query revocation: %w", err)
	}
	return count > 0, nil
}

// Close releases the underlying connection pool.
func (r *PostgresRegistry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func credentialHash(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
