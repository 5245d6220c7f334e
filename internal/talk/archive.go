package talk

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"conftalks/internal/fileutil"
)

// Sort orders records by year, season, url, speaker, then title so archives
// and load order are stable between runs.
func Sort(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Season != b.Season {
			return a.Season.order() < b.Season.order()
		}
		if a.URL != b.URL {
			return a.URL < b.URL
		}
		if a.Speaker != b.Speaker {
			return a.Speaker < b.Speaker
		}
		return a.Title < b.Title
	})
}

// WriteJSON writes records to path as an indented JSON array.
func WriteJSON(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// ReadJSON loads an archive written by WriteJSON.
func ReadJSON(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode archive %s: %w", path, err)
	}
	return records, nil
}
