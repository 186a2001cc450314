// Package store persists run results as JSON records on disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qabench/internal/bench"
)

// Kind discriminates stored records.
type Kind string

const (
	// KindSingle is one run of one model.
	KindSingle Kind = "single"
	// KindMulti is a batch of runs over one benchmark.
	KindMulti Kind = "multi"
)

// SingleRun is the payload of a single record.
type SingleRun struct {
	BenchmarkID string `json:"benchmarkId,omitempty"`
	bench.RunOutput
}

// Record is a stored result file. Exactly one of Single and Multi is set,
// matching Kind.
type Record struct {
	Kind   Kind
	Single *SingleRun
	Multi  *bench.MultiRunOutput
}

// Timestamp returns when the recorded work finished.
func (r Record) Timestamp() time.Time {
	switch r.Kind {
	case KindSingle:
		return r.Single.Summary.Timestamp
	case KindMulti:
		return r.Multi.Timestamp
	}
	return time.Time{}
}

// Runs returns every run in the record.
func (r Record) Runs() []bench.RunOutput {
	switch r.Kind {
	case KindSingle:
		return []bench.RunOutput{r.Single.RunOutput}
	case KindMulti:
		return r.Multi.Runs
	}
	return nil
}

// BenchmarkID returns the benchmark the record belongs to.
func (r Record) BenchmarkID() string {
	switch r.Kind {
	case KindSingle:
		if r.Single.BenchmarkID != "" {
			return r.Single.BenchmarkID
		}
		return r.Single.Summary.BenchmarkID
	case KindMulti:
		return r.Multi.BenchmarkID
	}
	return ""
}

// Validate checks that the payload matches the kind.
func (r Record) Validate() error {
	switch r.Kind {
	case KindSingle:
		if r.Single == nil || r.Multi != nil {
			return errors.New("single record must carry exactly one run")
		}
		return r.Single.Validate()
	case KindMulti:
		if r.Multi == nil || r.Single != nil {
			return errors.New("multi record must carry a run list")
		}
		if len(r.Multi.Runs) == 0 {
			return errors.New("multi record has no runs")
		}
		for i, run := range r.Multi.Runs {
			if err := run.Validate(); err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
}

type singleWire struct {
	Kind Kind `json:"kind"`
	SingleRun
}

type multiWire struct {
	Kind Kind `json:"kind"`
	bench.MultiRunOutput
}

// MarshalJSON writes the kind next to the payload fields.
func (r Record) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindSingle:
		if r.Single == nil {
			return nil, errors.New("marshal record: single payload missing")
		}
		return json.Marshal(singleWire{Kind: r.Kind, SingleRun: *r.Single})
	case KindMulti:
		if r.Multi == nil {
			return nil, errors.New("marshal record: multi payload missing")
		}
		return json.Marshal(multiWire{Kind: r.Kind, MultiRunOutput: *r.Multi})
	default:
		return nil, fmt.Errorf("marshal record: unknown kind %q", r.Kind)
	}
}

// UnmarshalJSON reads a record. Files written before records carried a kind
// are classified by the presence of a runs list.
func (r *Record) UnmarshalJSON(data []byte) error {
	var probe struct {
		Kind Kind            `json:"kind"`
		Runs json.RawMessage `json:"runs"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	kind := probe.Kind
	if kind == "" {
		kind = KindSingle
		if len(probe.Runs) > 0 {
			kind = KindMulti
		}
	}
	switch kind {
	case KindSingle:
		var single SingleRun
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*r = Record{Kind: KindSingle, Single: &single}
	case KindMulti:
		var multi bench.MultiRunOutput
		if err := json.Unmarshal(data, &multi); err != nil {
			return err
		}
		*r = Record{Kind: KindMulti, Multi: &multi}
	default:
		return fmt.Errorf("unknown record kind %q", kind)
	}
	return nil
}
