package universe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// File is the YAML universe document
type File struct {
	Filter      Filter      `yaml:"filter"`
	Instruments []FileEntry `yaml:"instruments"`
}

// FileEntry is one instrument line of the universe file
type FileEntry struct {
	ID           string                  `yaml:"id"`
	Name         string                  `yaml:"name"`
	Sector       string                  `yaml:"sector"`
	Listed       string                  `yaml:"listed"`   // YYYY-MM-DD, optional
	Delisted     string                  `yaml:"delisted"` // YYYY-MM-DD, optional
	Fundamentals *contracts.Fundamentals `yaml:"fundamentals"`
}

// FileProvider serves a universe read from a YAML file
type FileProvider struct {
	StaticProvider
}

// LoadFile reads and parses a universe file
func LoadFile(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	p, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParseFile parses a universe document
func ParseFile(data []byte) (*FileProvider, error) {
	var doc File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse universe: %w", err)
	}
	if len(doc.Instruments) == 0 {
		return nil, errors.New("universe has no instruments")
	}

	seen := make(map[string]struct{}, len(doc.Instruments))
	members := make([]Member, 0, len(doc.Instruments))
	for i, e := range doc.Instruments {
		if e.ID == "" {
			return nil, fmt.Errorf("instruments[%d]: id is required", i)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("instruments[%d]: %w: %s", i, contracts.ErrDuplicateInstrument, e.ID)
		}
		seen[e.ID] = struct{}{}

		m := Member{
			Instrument:   contracts.Instrument{ID: e.ID, Sector: e.Sector},
			Name:         e.Name,
			Fundamentals: e.Fundamentals,
		}
		var err error
		if m.Listed, err = parseDate(e.Listed); err != nil {
			return nil, fmt.Errorf("instruments[%d].listed: %w", i, err)
		}
		if m.Delisted, err = parseDate(e.Delisted); err != nil {
			return nil, fmt.Errorf("instruments[%d].delisted: %w", i, err)
		}
		if !m.Listed.IsZero() && !m.Delisted.IsZero() && !m.Delisted.After(m.Listed) {
			return nil, fmt.Errorf("instruments[%d]: delisted must be after listed", i)
		}
		members = append(members, m)
	}

	return &FileProvider{StaticProvider: StaticProvider{members: members, filter: doc.Filter}}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
