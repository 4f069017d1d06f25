package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
)

// RecordStore persists flat records as one CSV line each under a data
// directory, one file per record set. The first field of a line is the
// record key. Saves go through a temp file and rename so a crash mid-write
// never truncates the live file.
type RecordStore struct {
	dir string
	log logger.Logger
}

func NewRecordStore(dir string, log logger.Logger) (*RecordStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &RecordStore{dir: dir, log: log}, nil
}

// LoadRecords reads the named record set. A missing file is an empty set;
// a malformed line is skipped with a warning and does not abort the rest.
func (s *RecordStore) LoadRecords(name string) ([]domain.Record, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var records []domain.Record
	for {
		fields, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				s.log.Warn("Skipping malformed record line", "name", name, "error", err)
				continue
			}
			return records, err
		}
		if len(fields) == 0 || fields[0] == "" {
			s.log.Warn("Skipping record with empty key", "name", name)
			continue
		}
		records = append(records, domain.Record{Key: fields[0], Fields: fields[1:]})
	}

	return records, nil
}

// SaveRecords atomically replaces the named record set.
func (s *RecordStore) SaveRecords(name string, records []domain.Record) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	for _, rec := range records {
		line := append([]string{rec.Key}, rec.Fields...)
		if err := writer.Write(line); err != nil {
			tmp.Close()
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path(name))
}

func (s *RecordStore) path(name string) string {
	return filepath.Join(s.dir, name+".csv")
}
