// Package analysis turns the per-tier match tables into the meta-strength
// outcome table: champion win rates, team sums, and whether the team with
// the stronger champions won.
package analysis

import (
	"errors"
	"fmt"

	"meta-analyzer/internal/storage"
)

// ErrNoInputData is returned when the data directory holds no tier tables
var ErrNoInputData = errors.New("no match data files found")

// MasterTable is every tier table concatenated in file-name order
type MasterTable struct {
	Files   []string
	Records []storage.ParticipantRecord
}

// LoadMasterTable reads every lol_match_data_*.csv in the store's directory
func LoadMasterTable(store *storage.CSVStore) (*MasterTable, error) {
	files, err := store.TierFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s (run collect first)", ErrNoInputData, store.Dir())
	}

	table := &MasterTable{Files: files}
	for _, path := range files {
		records, err := storage.ReadTierFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load tier table: %w", err)
		}
		table.Records = append(table.Records, records...)
	}
	return table, nil
}
