package repository

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/bakatarta/internal/domain"
)

// SettingsKey identifies the single site settings document.
const SettingsKey = "main_settings"

// SettingsRepository persists the site settings document.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// Get returns the stored document, or an empty one when nothing was saved.
func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM settings WHERE key = $1`, SettingsKey).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Settings{}, nil
		}
		return nil, err
	}
	settings := domain.Settings{}
	if err := json.Unmarshal(payload, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Upsert merges doc into the stored document, top-level keys overwriting.
func (r *SettingsRepository) Upsert(ctx context.Context, doc domain.Settings) error {
	return r.write(ctx, doc, `
        INSERT INTO settings (key, data, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET data = settings.data || EXCLUDED.data, updated_at = now()
    `)
}

// Replace overwrites the stored document with doc.
func (r *SettingsRepository) Replace(ctx context.Context, doc domain.Settings) error {
	return r.write(ctx, doc, `
        INSERT INTO settings (key, data, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
    `)
}

func (r *SettingsRepository) write(ctx context.Context, doc domain.Settings, query string) error {
	clean := make(domain.Settings, len(doc))
	for k, v := range doc {
		if k == "_id" || k == "key" {
			continue
		}
		clean[k] = v
	}
	payload, err := json.Marshal(clean)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, SettingsKey, payload)
	return err
}
