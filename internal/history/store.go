package history

import (
	"bufio"
	"hash/fnv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/workflow"
	"github.com/giantswarm/bench/pkg/logging"
)

// Record is one line of a run's JSONL journal.
type Record struct {
	Timestamp   time.Time                        `json:"timestamp"`
	Inputs      map[string]interface{}            `json:"inputs"`
	StepResults map[string]workflow.StepResult    `json:"step_results"`
	FinalStatus workflow.StepStatus               `json:"final_status"`
}

// Store implements RunHistoryStore: an append-only JSONL journal per
// (workflow id, input fingerprint), rooted under dir.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New builds a Store rooted at dir (typically "<config dir>/history").
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Fingerprint is a stable hash of a resolved inputs map, used as the
// history key for a given set of inputs.
func Fingerprint(inputs map[string]interface{}) (string, error) {
	data, err := json.Marshal(sortedMap(inputs))
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "marshal_inputs", "could not marshal inputs for fingerprinting", err)
	}
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// sortedMap produces a key-sorted copy so Fingerprint is stable across
// Go's randomized map iteration order.
func sortedMap(m map[string]interface{}) []keyValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]keyValue, len(keys))
	for i, k := range keys {
		out[i] = keyValue{Key: k, Value: m[k]}
	}
	return out
}

type keyValue struct {
	Key   string      `json:"k"`
	Value interface{} `json:"v"`
}

func (s *Store) path(workflowID, fingerprint string) string {
	return filepath.Join(s.dir, workflowID, fingerprint+".jsonl")
}

// Record implements workflow.HistorySink: appends one line for this run.
// Persistence errors are logged, not returned — a history-write failure
// must never fail the workflow run itself.
func (s *Store) Record(workflowID string, inputs map[string]interface{}, outcome workflow.RunOutcome) {
	if err := s.record(workflowID, inputs, outcome); err != nil {
		logging.Error("history", err, "failed to record run of workflow %q", workflowID)
	}
}

func (s *Store) record(workflowID string, inputs map[string]interface{}, outcome workflow.RunOutcome) error {
	fp, err := Fingerprint(inputs)
	if err != nil {
		return err
	}

	rec := Record{
		Timestamp:   time.Now().UTC(),
		Inputs:      inputs,
		StepResults: outcome.Steps,
		FinalStatus: outcome.Status,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshal_record", "could not marshal history record", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(workflowID, fp)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return apperr.Wrap(apperr.Internal, "mkdir", "could not create history directory", err)
	}

	existing, _ := os.ReadFile(target)
	return writeAtomic(target, append(existing, append(line, '\n')...))
}

// LastInputs implements workflow.LastInputsSource: returns the inputs of
// the most recently recorded run of workflowID across all fingerprints.
func (s *Store) LastInputs(workflowID string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.dir, workflowID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, false
	}

	var latest *Record
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		recs, err := readRecords(filepath.Join(dir, entry.Name()))
		if err != nil || len(recs) == 0 {
			continue
		}
		last := recs[len(recs)-1]
		if latest == nil || last.Timestamp.After(latest.Timestamp) {
			latest = &last
		}
	}
	if latest == nil {
		return nil, false
	}
	return latest.Inputs, true
}

// Purge removes history files matching workflowID and/or inputKeys
// (fingerprints). At least one of the two must be non-empty.
func (s *Store) Purge(workflowID string, fingerprints []string) error {
	if workflowID == "" && len(fingerprints) == 0 {
		return apperr.Validationf("purge", "missing_filter", "purge requires a workflow id or a set of fingerprints")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if workflowID != "" && len(fingerprints) == 0 {
		return os.RemoveAll(filepath.Join(s.dir, workflowID))
	}

	for _, fp := range fingerprints {
		var target string
		if workflowID != "" {
			target = s.path(workflowID, fp)
		} else {
			matches, _ := filepath.Glob(filepath.Join(s.dir, "*", fp+".jsonl"))
			for _, m := range matches {
				os.Remove(m)
			}
			continue
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return apperr.Wrap(apperr.Internal, "remove_history_file", "could not remove history file "+target, err)
		}
	}
	return nil
}

func readRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, scanner.Err()
}

// writeAtomic writes data to a temp file in the same directory as path
// and renames it into place, so a crash mid-write never leaves a
// truncated journal behind.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create_temp", "could not create temp file for atomic write", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.Internal, "write_temp", "could not write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.Internal, "close_temp", "could not close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.Internal, "rename_temp", "could not rename temp file into place", err)
	}
	return nil
}
