package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	tierFilePrefix = "lol_match_data_"
	tierFileSuffix = ".csv"

	// TierFilePattern matches every per-tier table in a data directory
	TierFilePattern = tierFilePrefix + "*" + tierFileSuffix

	// FinalFileName is the analysis output handed to BI tools
	FinalFileName = "final_analysis_for_tableau.csv"
)

// ErrEmptyTable is returned when asked to write a table with no rows
var ErrEmptyTable = errors.New("empty table")

// TierFileName returns lol_match_data_<TIER>.csv
func TierFileName(tier string) string {
	return tierFilePrefix + tier + tierFileSuffix
}

// CSVStore reads and writes the flat tables in one data directory
type CSVStore struct {
	dir string
}

// NewCSVStore creates the data directory if needed
func NewCSVStore(dir string) (*CSVStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &CSVStore{dir: dir}, nil
}

func (s *CSVStore) Dir() string { return s.dir }

// WriteTier overwrites the tier's table with records and returns its path
func (s *CSVStore) WriteTier(tier string, records []ParticipantRecord) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("tier %s: %w", tier, ErrEmptyTable)
	}

	path := filepath.Join(s.dir, TierFileName(tier))
	err := writeAtomic(path, func(w *csv.Writer) error {
		if err := w.Write(TierColumns); err != nil {
			return err
		}
		for _, rec := range records {
			if err := w.Write(rec.row()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to write tier %s: %w", tier, err)
	}
	return path, nil
}

// WriteFinal overwrites the final analysis table. An empty result still
// produces a header-only file.
func (s *CSVStore) WriteFinal(rows []OutcomeRow) (string, error) {
	path := filepath.Join(s.dir, FinalFileName)
	err := writeAtomic(path, func(w *csv.Writer) error {
		if err := w.Write(FinalColumns); err != nil {
			return err
		}
		for _, row := range rows {
			if err := w.Write(row.row()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to write final table: %w", err)
	}
	return path, nil
}

// TierFiles lists the per-tier tables in sorted file-name order
func (s *CSVStore) TierFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, TierFilePattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list tier files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// ReadTierFile loads one per-tier table. Booleans accept any
// strconv.ParseBool spelling so True/False tables load too.
func ReadTierFile(path string) ([]ParticipantRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	r := csv.NewReader(f)
	r.FieldsPerRecord = len(TierColumns)

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: missing header", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := checkHeader(header, TierColumns); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var records []ParticipantRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		line, _ := r.FieldPos(0)

		teamID, err := strconv.Atoi(row[4])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad teamId %q", name, line, row[4])
		}
		win, err := strconv.ParseBool(row[5])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad win %q", name, line, row[5])
		}

		records = append(records, ParticipantRecord{
			MatchID:      row[0],
			Tier:         row[1],
			Rank:         row[2],
			ChampionName: row[3],
			TeamID:       teamID,
			Win:          win,
		})
	}
	return records, nil
}

func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("expected %d columns, got %d", len(want), len(got))
	}
	for i := range want {
		// Tolerate a UTF-8 BOM from spreadsheet exports
		col := strings.TrimPrefix(got[i], "\ufeff")
		if col != want[i] {
			return fmt.Errorf("column %d: expected %q, got %q", i+1, want[i], col)
		}
	}
	return nil
}

// writeAtomic writes through a temp file in the same directory and renames
// it over path, so readers never see a truncated table
func writeAtomic(path string, fill func(w *csv.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := fill(w); err != nil {
		tmp.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
