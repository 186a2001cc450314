package resultsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"qabench/internal/bench"
	"qabench/internal/judge"
	"qabench/internal/store"
)

// Index implements store.Indexer. Records already indexed under the same
// name are left untouched.
func (d *DB) Index(ctx context.Context, name string, record store.Record) error {
	_, err := d.Ingest(ctx, name, record)
	return err
}

// Ingest writes a record and its runs in one transaction. It reports whether
// anything was written.
func (d *DB) Ingest(ctx context.Context, name string, record store.Record) (bool, error) {
	if err := record.Validate(); err != nil {
		return false, fmt.Errorf("ingest %s: %w", name, err)
	}
	fingerprint, err := FingerprintJSON(record)
	if err != nil {
		return false, fmt.Errorf("fingerprint %s: %w", name, err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin ingest: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := lookupID(ctx, tx, "records", "record_id", "record_name", name); err == nil {
		return false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("lookup record: %w", err)
	}

	recordID := uuid.NewString()
	benchmarkName, judgeID := recordMeta(record)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (record_id, record_name, fingerprint, kind, benchmark_id, benchmark_name, judge_id, recorded_at, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, now())`,
		recordID, name, fingerprint, string(record.Kind), record.BenchmarkID(),
		nullableString(benchmarkName), nullableString(judgeID), record.Timestamp().UTC(),
	); err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}

	for index, run := range record.Runs() {
		if err := insertRun(ctx, tx, recordID, index, run, record.Timestamp()); err != nil {
			return false, fmt.Errorf("insert run %d: %w", index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit ingest: %w", err)
	}
	clog.FromContext(ctx).Info("indexed result", "name", name, "runs", len(record.Runs()))
	return true, nil
}

// IngestStore indexes every record in the file store and returns how many
// were new.
func (d *DB) IngestStore(ctx context.Context, files *store.FileStore) (int, error) {
	entries, err := files.List(ctx)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, entry := range entries {
		record, err := files.Load(entry.Name)
		if err != nil {
			return added, err
		}
		ok, err := d.Ingest(ctx, entry.Name, record)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

func insertRun(ctx context.Context, tx *sql.Tx, recordID string, index int, run bench.RunOutput, fallback time.Time) error {
	modelID, err := upsertModel(ctx, tx, run.Summary.Model)
	if err != nil {
		return err
	}
	finished := run.Summary.Timestamp
	if finished.IsZero() {
		finished = fallback
	}
	runID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, record_id, run_index, model_id, total_questions, correct_count, accuracy, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, recordID, index, modelID,
		run.Summary.TotalQuestions, run.Summary.CorrectCount, run.Summary.Accuracy, finished.UTC(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, result := range run.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_results (run_id, item_index, question, expected_answer, model_answer, correct, lossy, rationale)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, result.Index, result.Question, result.ExpectedAnswer, result.ModelAnswer,
			result.Verdict.Correct, judge.IsLossy(result.Verdict), nullableString(result.Verdict.Rationale),
		); err != nil {
			return fmt.Errorf("insert item %d: %w", result.Index, err)
		}
	}
	return nil
}

// upsertModel inserts a model by id. The first display name seen is kept.
func upsertModel(ctx context.Context, tx *sql.Tx, model bench.ModelConfig) (string, error) {
	if model.ID == "" {
		return "", errors.New("resultsdb: model id is required")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO models (model_id, model_key, display_name)
		 VALUES (?, ?, ?)
		 ON CONFLICT (model_key) DO NOTHING`,
		uuid.NewString(), model.ID, model.DisplayName(),
	); err != nil {
		return "", fmt.Errorf("upsert model: %w", err)
	}
	id, err := lookupID(ctx, tx, "models", "model_id", "model_key", model.ID)
	if err != nil {
		return "", fmt.Errorf("lookup model id: %w", err)
	}
	return id, nil
}

func recordMeta(record store.Record) (benchmarkName, judgeID string) {
	switch record.Kind {
	case store.KindMulti:
		return record.Multi.BenchmarkName, record.Multi.Judge.ID
	case store.KindSingle:
		return record.Single.Summary.BenchmarkName, record.Single.Summary.Judge.ID
	}
	return "", ""
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// lookupID fetches a single ID column value for a row keyed by keyColumn.
func lookupID(ctx context.Context, db queryer, table, idColumn, keyColumn, key string) (string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", idColumn, table, keyColumn)
	var id string
	if err := db.QueryRowContext(ctx, query, key).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// nullableString maps empty strings to SQL NULL.
func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
