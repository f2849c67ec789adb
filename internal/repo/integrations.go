package repo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/cipher"
	"github.com/antigravity-dev/banking-platform/internal/domain"
	"github.com/google/uuid"
)

// sensitiveConfigKeys lists config_json fields encrypted at rest before
// being persisted, and decrypted (or placeholdered) on read.
var sensitiveConfigKeys = []string{"password", "api_key", "secret", "token", "dsn"}

// IntegrationRepo persists external-service connection configuration.
// Values under sensitiveConfigKeys are transparently encrypted with the
// platform Cipher before insert/update and decrypted on read.
type IntegrationRepo struct {
	db  *sql.DB
	enc *cipher.Cipher
}

// NewIntegrationRepo opens the integrations table, creating it if absent.
func NewIntegrationRepo(db *sql.DB, enc *cipher.Cipher) (*IntegrationRepo, error) {
	r := &IntegrationRepo{db: db, enc: enc}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("integration schema: %w", err)
	}
	return r, nil
}

func (r *IntegrationRepo) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS integrations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'disconnected',
		last_sync TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Create inserts a new integration, encrypting any sensitive config
// fields first.
func (r *IntegrationRepo) Create(name string, config map[string]interface{}) (domain.Integration, error) {
	encrypted, err := r.encryptConfig(config)
	if err != nil {
		return domain.Integration{}, err
	}
	now := time.Now().UTC()
	in := domain.Integration{
		ID:         uuid.NewString(),
		Name:       name,
		ConfigJSON: encrypted,
		Status:     domain.IntegrationDisconnected,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err = r.db.Exec(
		`INSERT INTO integrations (id, name, config_json, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.ConfigJSON, in.Status, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		return domain.Integration{}, apierrors.Data(err, "insert integration %s", name)
	}
	return in, nil
}

// Get fetches an integration by ID with its config decrypted.
func (r *IntegrationRepo) Get(id string) (domain.Integration, error) {
	row := r.db.QueryRow(
		`SELECT id, name, config_json, status, last_sync, created_at, updated_at FROM integrations WHERE id = ?`, id)
	in, err := scanIntegration(row)
	if err != nil {
		return domain.Integration{}, err
	}
	in.ConfigJSON = r.decryptConfig(in.ConfigJSON)
	return in, nil
}

// List returns all integrations with config decrypted.
func (r *IntegrationRepo) List() ([]domain.Integration, error) {
	rows, err := r.db.Query(
		`SELECT id, name, config_json, status, last_sync, created_at, updated_at FROM integrations ORDER BY created_at DESC`)
	if err != nil {
		return nil, apierrors.Data(err, "list integrations")
	}
	defer rows.Close()

	var out []domain.Integration
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		in.ConfigJSON = r.decryptConfig(in.ConfigJSON)
		out = append(out, in)
	}
	return out, rows.Err()
}

// UpdateStatus sets connection status and, on success, last_sync to now.
func (r *IntegrationRepo) UpdateStatus(id string, status domain.IntegrationStatus) error {
	now := time.Now().UTC()
	var err error
	if status == domain.IntegrationConnected {
		_, err = r.db.Exec(`UPDATE integrations SET status = ?, last_sync = ?, updated_at = ? WHERE id = ?`, status, now, now, id)
	} else {
		_, err = r.db.Exec(`UPDATE integrations SET status = ?, updated_at = ? WHERE id = ?`, status, now, id)
	}
	if err != nil {
		return apierrors.Data(err, "update integration %s status", id)
	}
	return nil
}

// Delete removes an integration by ID.
func (r *IntegrationRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM integrations WHERE id = ?`, id)
	if err != nil {
		return apierrors.Data(err, "delete integration %s", id)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apierrors.NotFound("integration %s", id)
	}
	return nil
}

// Rotate re-encrypts every stored integration's sensitive config fields
// under newEnc and adopts it as the repo's active cipher, used by the
// "keys rotate" CLI command. A row whose sensitive fields fail to
// decrypt under the current key (already rotated away, or corrupt) is
// left untouched and reported back to the caller.
func (r *IntegrationRepo) Rotate(newEnc *cipher.Cipher) (rotated int, skipped []string, err error) {
	rows, err := r.db.Query(`SELECT id, config_json FROM integrations`)
	if err != nil {
		return 0, nil, apierrors.Data(err, "list integrations for key rotation")
	}
	type row struct{ id, configJSON string }
	var all []row
	for rows.Next() {
		var rr row
		if err := rows.Scan(&rr.id, &rr.configJSON); err != nil {
			rows.Close()
			return 0, nil, apierrors.Data(err, "scan integration for key rotation")
		}
		all = append(all, rr)
	}
	rows.Close()

	for _, rr := range all {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(rr.configJSON), &raw); err != nil {
			skipped = append(skipped, rr.id)
			continue
		}
		failed := false
		for k, v := range raw {
			s, ok := v.(string)
			if !ok || !isSensitiveKey(k) || !cipher.IsEncrypted(s) {
				continue
			}
			plain := r.enc.Decrypt(s)
			if plain == cipher.Placeholder {
				failed = true
				break
			}
			raw[k] = plain
		}
		if failed {
			skipped = append(skipped, rr.id)
			continue
		}

		reEncrypted := make(map[string]interface{}, len(raw))
		for k, v := range raw {
			if s, ok := v.(string); ok && isSensitiveKey(k) {
				enc, err := newEnc.Encrypt(s)
				if err != nil {
					skipped = append(skipped, rr.id)
					reEncrypted = nil
					break
				}
				reEncrypted[k] = enc
				continue
			}
			reEncrypted[k] = v
		}
		if reEncrypted == nil {
			continue
		}
		b, err := json.Marshal(reEncrypted)
		if err != nil {
			skipped = append(skipped, rr.id)
			continue
		}
		if _, err := r.db.Exec(`UPDATE integrations SET config_json = ? WHERE id = ?`, string(b), rr.id); err != nil {
			return rotated, skipped, apierrors.Data(err, "persist rotated config for integration %s", rr.id)
		}
		rotated++
	}

	r.enc = newEnc
	return rotated, skipped, nil
}

func scanIntegration(s scanner) (domain.Integration, error) {
	var in domain.Integration
	var lastSync sql.NullTime
	if err := s.Scan(&in.ID, &in.Name, &in.ConfigJSON, &in.Status, &lastSync, &in.CreatedAt, &in.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Integration{}, apierrors.NotFound("integration")
		}
		return domain.Integration{}, apierrors.Data(err, "scan integration")
	}
	if lastSync.Valid {
		in.LastSync = &lastSync.Time
	}
	return in, nil
}

// encryptConfig marshals config to JSON, encrypting any string value
// whose key is in sensitiveConfigKeys.
func (r *IntegrationRepo) encryptConfig(config map[string]interface{}) (string, error) {
	out := make(map[string]interface{}, len(config))
	for k, v := range config {
		if s, ok := v.(string); ok && isSensitiveKey(k) {
			enc, err := r.enc.Encrypt(s)
			if err != nil {
				return "", apierrors.Data(err, "encrypt integration field %s", k)
			}
			out[k] = enc
			continue
		}
		out[k] = v
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", apierrors.Data(err, "marshal integration config")
	}
	return string(b), nil
}

// decryptConfig parses stored config_json and decrypts sensitive fields,
// rendering Placeholder in place of any value that fails to decrypt.
func (r *IntegrationRepo) decryptConfig(configJSON string) string {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(configJSON), &raw); err != nil {
		return configJSON
	}
	for k, v := range raw {
		if s, ok := v.(string); ok && isSensitiveKey(k) && cipher.IsEncrypted(s) {
			raw[k] = r.enc.Decrypt(s)
		}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return configJSON
	}
	return string(b)
}

func isSensitiveKey(k string) bool {
	for _, s := range sensitiveConfigKeys {
		if k == s {
			return true
		}
	}
	return false
}
