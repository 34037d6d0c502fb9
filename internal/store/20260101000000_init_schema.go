package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	PostgresMigrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, model := range []any{(*pgRound)(nil), (*pgGuess)(nil), (*pgScore)(nil)} {
				if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
					return fmt.Errorf("create table: %w", err)
				}
			}
			if _, err := tx.ExecContext(ctx, `
				ALTER TABLE guesswho_rounds DROP CONSTRAINT IF EXISTS guesswho_rounds_single_slot;
				ALTER TABLE guesswho_rounds ADD CONSTRAINT guesswho_rounds_single_slot CHECK (slot = 1);
				ALTER TABLE guesswho_scores DROP CONSTRAINT IF EXISTS guesswho_scores_non_negative;
				ALTER TABLE guesswho_scores ADD CONSTRAINT guesswho_scores_non_negative CHECK (score >= 0);
				CREATE INDEX IF NOT EXISTS idx_guesswho_scores_rank ON guesswho_scores (score DESC, created_at ASC);
			`); err != nil {
				return fmt.Errorf("constraints: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		for _, model := range []any{(*pgGuess)(nil), (*pgRound)(nil), (*pgScore)(nil)} {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
