package projection

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	"github.com/colliery-io/metis/internal/merr"
)

// ConfigRepo wraps the configuration table: workspace settings and the
// monotonic (prefix, type) short-code counters (spec §4.4, invariant I7).
type ConfigRepo struct {
	db *bun.DB
}

func NewConfigRepo(db *bun.DB) *ConfigRepo {
	return &ConfigRepo{db: db}
}

func counterKey(prefix, typeLetter string) string {
	return fmt.Sprintf("counter:%s:%s", prefix, typeLetter)
}

// Get returns the raw value stored at key, and whether it was present.
func (r *ConfigRepo) Get(ctx context.Context, key string) (string, bool, error) {
	row := new(ConfigRow)
	err := r.db.NewSelect().Model(row).Where("key = ?", key).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, merr.WrapProjection(err, "read config "+key)
	}
	return row.Value, true, nil
}

// Set upserts key=value.
func (r *ConfigRepo) Set(ctx context.Context, key, value string) error {
	row := &ConfigRow{Key: key, Value: value, UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	_, err := r.db.NewInsert().Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return merr.WrapProjection(err, "write config "+key)
	}
	return nil
}

// GenerateShortCode atomically increments and returns the next short code
// for (prefix, typeLetter). Relies on the database being opened with
// _txlock=immediate (schema.go) so the read-increment-write below can't
// race with a concurrent caller.
func (r *ConfigRepo) GenerateShortCode(ctx context.Context, prefix, typeLetter string) (string, error) {
	var code string
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		key := counterKey(prefix, typeLetter)
		row := new(ConfigRow)
		err := tx.NewSelect().Model(row).Where("key = ?", key).Scan(ctx)
		current := 0
		if err == nil {
			current, _ = strconv.Atoi(row.Value)
		} else if !isNoRows(err) {
			return merr.WrapProjection(err, "read counter "+key)
		}

		next := current + 1
		updated := &ConfigRow{Key: key, Value: strconv.Itoa(next), UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano)}
		if _, err := tx.NewInsert().Model(updated).
			On("CONFLICT (key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return merr.WrapProjection(err, "write counter "+key)
		}

		code = fmt.Sprintf("%s-%s-%04d", prefix, typeLetter, next)
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// SetCounterIfLower raises the (prefix, typeLetter) counter to observed if
// its current value is lower, and never lowers it (invariant I7 — used by
// counter recovery when the filesystem shows a higher suffix than the
// cache remembers).
func (r *ConfigRepo) SetCounterIfLower(ctx context.Context, prefix, typeLetter string, observed uint32) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		key := counterKey(prefix, typeLetter)
		row := new(ConfigRow)
		err := tx.NewSelect().Model(row).Where("key = ?", key).Scan(ctx)
		current := 0
		if err == nil {
			current, _ = strconv.Atoi(row.Value)
		} else if !isNoRows(err) {
			return merr.WrapProjection(err, "read counter "+key)
		}
		if int(observed) <= current {
			return nil
		}
		updated := &ConfigRow{Key: key, Value: strconv.Itoa(int(observed)), UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano)}
		_, err = tx.NewInsert().Model(updated).
			On("CONFLICT (key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return merr.WrapProjection(err, "write counter "+key)
		}
		return nil
	})
}
