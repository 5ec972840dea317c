package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/typixhq/typix/pkg/querycache"
)

// KV is a namespaced key/value view over the cache_entries table. It
// implements querycache.Store.
type KV struct {
	store     *Store
	namespace string
}

var _ querycache.Store = (*KV)(nil)

// Get returns the entry for key, if present.
func (kv *KV) Get(ctx context.Context, key string) (querycache.Entry, bool, error) {
	if kv.store == nil || kv.store.db == nil {
		return querycache.Entry{}, false, ErrStoreClosed
	}
	row := kv.store.db.QueryRowContext(ctx,
		`SELECT data, ts_ms FROM cache_entries WHERE namespace = ? AND key = ?`,
		kv.namespace, key)

	var data []byte
	var tsMillis int64
	if err := row.Scan(&data, &tsMillis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return querycache.Entry{}, false, nil
		}
		return querycache.Entry{}, false, err
	}
	return querycache.Entry{
		Data:      data,
		Timestamp: time.UnixMilli(tsMillis),
	}, true, nil
}

// Set upserts an entry under key.
func (kv *KV) Set(ctx context.Context, key string, entry querycache.Entry) error {
	if kv.store == nil || kv.store.db == nil {
		return ErrStoreClosed
	}
	_, err := kv.store.db.ExecContext(ctx, `
		INSERT INTO cache_entries (namespace, key, data, ts_ms, session_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			data = excluded.data,
			ts_ms = excluded.ts_ms,
			session_id = excluded.session_id
	`, kv.namespace, key, entry.Data, entry.Timestamp.UnixMilli(), kv.store.sessionID)
	return err
}

// Delete removes one key.
func (kv *KV) Delete(ctx context.Context, key string) error {
	if kv.store == nil || kv.store.db == nil {
		return ErrStoreClosed
	}
	_, err := kv.store.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE namespace = ? AND key = ?`,
		kv.namespace, key)
	return err
}

// DeletePrefix removes every key starting with prefix.
func (kv *KV) DeletePrefix(ctx context.Context, prefix string) error {
	if kv.store == nil || kv.store.db == nil {
		return ErrStoreClosed
	}
	_, err := kv.store.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE namespace = ? AND key LIKE ? ESCAPE '\'`,
		kv.namespace, escapeLike(prefix)+"%")
	return err
}

// Clear removes every entry in the namespace.
func (kv *KV) Clear(ctx context.Context) error {
	if kv.store == nil || kv.store.db == nil {
		return ErrStoreClosed
	}
	_, err := kv.store.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE namespace = ?`, kv.namespace)
	return err
}

// escapeLike escapes LIKE metacharacters so a prefix matches literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
