package syntax

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed instruments.yaml
var instrumentsYAML []byte

type InstrumentKind int

const (
	Unknown InstrumentKind = iota
	Pitched
	Percussion
)

type instrumentTables struct {
	Pitched    []string       `yaml:"pitched"`
	Percussion map[string]int `yaml:"percussion"`

	pitched    map[string]bool
	percussion map[string]int
}

var (
	tablesOnce sync.Once
	tables     *instrumentTables
)

func loadTables() *instrumentTables {
	tablesOnce.Do(func() {
		var t instrumentTables
		if err := yaml.Unmarshal(instrumentsYAML, &t); err != nil {
			panic(fmt.Sprintf("syntax: instrument tables: %v", err))
		}
		t.pitched = make(map[string]bool, len(t.Pitched))
		for _, name := range t.Pitched {
			t.pitched[strings.ToLower(name)] = true
		}
		t.percussion = make(map[string]int, len(t.Percussion))
		for name, note := range t.Percussion {
			t.percussion[strings.ToLower(name)] = note
		}
		tables = &t
	})
	return tables
}

// LookupInstrument classifies an instrument name. For percussion the General
// MIDI key number is returned as well.
func LookupInstrument(name string) (InstrumentKind, int) {
	t := loadTables()
	key := strings.ToLower(name)
	if t.pitched[key] {
		return Pitched, 0
	}
	if note, ok := t.percussion[key]; ok {
		return Percussion, note
	}
	return Unknown, 0
}

// InstrumentNames lists the known names of one kind, as written in the tables.
func InstrumentNames(kind InstrumentKind) []string {
	t := loadTables()
	switch kind {
	case Pitched:
		return append([]string(nil), t.Pitched...)
	case Percussion:
		names := make([]string, 0, len(t.Percussion))
		for name := range t.Percussion {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}
	return nil
}
