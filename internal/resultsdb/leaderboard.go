package resultsdb

import (
	"context"
	"fmt"
	"time"
)

// Standing is one model's aggregate over every indexed run of a benchmark.
type Standing struct {
	BenchmarkID string    `json:"benchmarkId"`
	Model       string    `json:"model"`
	ModelName   string    `json:"modelName"`
	Runs        int64     `json:"runs"`
	Correct     int64     `json:"correct"`
	Total       int64     `json:"total"`
	Accuracy    float64   `json:"accuracy"`
	LastRun     time.Time `json:"lastRun"`
}

// Leaderboard ranks models by pooled accuracy. An empty benchmarkID covers
// every benchmark.
func (d *DB) Leaderboard(ctx context.Context, benchmarkID string) ([]Standing, error) {
	query := `SELECT benchmark_id, model, model_name, run_count, correct, total, accuracy, last_run
		FROM v_leaderboard
		WHERE ? = '' OR benchmark_id = ?
		ORDER BY benchmark_id, accuracy DESC, model`
	rows, err := d.db.QueryContext(ctx, query, benchmarkID, benchmarkID)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()
	var standings []Standing
	for rows.Next() {
		var standing Standing
		if err := rows.Scan(
			&standing.BenchmarkID,
			&standing.Model,
			&standing.ModelName,
			&standing.Runs,
			&standing.Correct,
			&standing.Total,
			&standing.Accuracy,
			&standing.LastRun,
		); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		standings = append(standings, standing)
	}
	return standings, rows.Err()
}

// LossyVerdicts counts indexed verdicts that came from the lossy judge path.
func (d *DB) LossyVerdicts(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, "SELECT count(*) FROM item_results WHERE lossy").Scan(&count); err != nil {
		return 0, fmt.Errorf("count lossy verdicts: %w", err)
	}
	return count, nil
}
