// Package storage persists objective evaluations and optimization runs on
// disk, one directory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/forcefit/internal/fitting"
	"github.com/san-kum/forcefit/internal/objective"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile  = "metadata.json"
	breakdownFile = "breakdown.csv"
	historyFile   = "history.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID             string    `json:"id"`
	Command        string    `json:"command"`
	Timestamp      time.Time `json:"timestamp"`
	Penalty        string    `json:"penalty"`
	Order          string    `json:"order"`
	Parameters     []string  `json:"parameters"`
	MVals          []float64 `json:"mvals"`
	PVals          []float64 `json:"pvals,omitempty"`
	X              float64   `json:"x"`
	Raw            float64   `json:"raw"`
	Regularization float64   `json:"regularization"`
	Evaluations    int       `json:"evaluations"`
	Status         string    `json:"status,omitempty"`
}

// Step is one recorded evaluation of a run.
type Step struct {
	Iteration      int       `json:"iteration"`
	X              float64   `json:"x"`
	Raw            float64   `json:"raw"`
	Regularization float64   `json:"regularization"`
	MVals          []float64 `json:"mvals"`
}

// Save writes a run and returns its generated id. The breakdown and history
// may be empty.
func (s *Store) Save(meta RunMetadata, breakdown *objective.Breakdown, history []Step) (string, error) {
	if meta.Command == "" {
		meta.Command = "eval"
	}
	meta.ID = fmt.Sprintf("%s_%s", meta.Command, uuid.NewString())
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeBreakdown(filepath.Join(runDir, breakdownFile), breakdown); err != nil {
		return "", err
	}
	if err := writeHistory(filepath.Join(runDir, historyFile), history); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}

func writeBreakdown(path string, b *objective.Breakdown) error {
	records := [][]string{{"name", "weight", "x", "contribution"}}
	for _, name := range b.Names() {
		e, _ := b.Get(name)
		records = append(records, []string{name, formatFloat(e.Weight), formatFloat(e.X), formatFloat(e.Contribution())})
	}
	return writeCSV(path, records)
}

func writeHistory(path string, history []Step) error {
	header := []string{"iteration", "x", "raw", "regularization"}
	if len(history) > 0 {
		for i := range history[0].MVals {
			header = append(header, fmt.Sprintf("m%d", i))
		}
	}
	records := [][]string{header}
	for _, st := range history {
		row := []string{strconv.Itoa(st.Iteration), formatFloat(st.X), formatFloat(st.Raw), formatFloat(st.Regularization)}
		for _, m := range st.MVals {
			row = append(row, formatFloat(m))
		}
		records = append(records, row)
	}
	return writeCSV(path, records)
}

// List returns every stored run, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) readCSV(runID, name string) ([][]string, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// LoadBreakdown restores the breakdown recorded with a run.
func (s *Store) LoadBreakdown(runID string) (*objective.Breakdown, error) {
	records, err := s.readCSV(runID, breakdownFile)
	if err != nil {
		return nil, err
	}
	b := objective.NewBreakdown()
	for i, rec := range records {
		if i == 0 || len(rec) < 3 {
			continue
		}
		w, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", breakdownFile, i+1, err)
		}
		x, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", breakdownFile, i+1, err)
		}
		b.Set(rec[0], objective.Entry{Weight: w, X: x})
	}
	return b, nil
}

// LoadHistory restores the recorded evaluations of a run.
func (s *Store) LoadHistory(runID string) ([]Step, error) {
	records, err := s.readCSV(runID, historyFile)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) < 4 {
			continue
		}
		vals := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", historyFile, i+1, err)
			}
			vals[j] = v
		}
		steps = append(steps, Step{
			Iteration:      int(vals[0]),
			X:              vals[1],
			Raw:            vals[2],
			Regularization: vals[3],
			MVals:          vals[4:],
		})
	}
	return steps, nil
}

// History returns the objective value of every stored run, oldest first.
func (s *Store) History() ([]float64, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(runs))
	for i, r := range runs {
		out[i] = r.X
	}
	return out, nil
}

// Export writes a run with its breakdown and history as one JSON document.
func (s *Store) Export(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	b, err := s.LoadBreakdown(runID)
	if err != nil {
		return err
	}
	history, err := s.LoadHistory(runID)
	if err != nil {
		return err
	}

	type row struct {
		Name string `json:"name"`
		objective.Entry
	}
	doc := struct {
		*RunMetadata
		Breakdown []row  `json:"breakdown"`
		History   []Step `json:"history"`
	}{RunMetadata: meta, History: history}
	for _, name := range b.Names() {
		e, _ := b.Get(name)
		doc.Breakdown = append(doc.Breakdown, row{Name: name, Entry: e})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Recorder collects the evaluations of a run as an objective observer.
type Recorder struct {
	steps []Step
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) OnEvaluate(mvals []float64, _ fitting.Order, res *objective.Result) {
	r.steps = append(r.steps, Step{
		Iteration:      len(r.steps),
		X:              res.X,
		Raw:            res.Raw.X,
		Regularization: res.Regularization.X,
		MVals:          append([]float64(nil), mvals...),
	})
}

func (r *Recorder) Steps() []Step { return r.steps }

// Values returns the objective value of every recorded step.
func (r *Recorder) Values() []float64 {
	out := make([]float64, len(r.steps))
	for i, st := range r.steps {
		out[i] = st.X
	}
	return out
}
