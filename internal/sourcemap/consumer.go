package sourcemap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawSourceMap mirrors the subset of the source-map-v3 JSON schema this
// resolver needs.
type rawSourceMap struct {
	Version    int      `json:"version"`
	Sources    []string `json:"sources"`
	Names      []string `json:"names"`
	Mappings   string   `json:"mappings"`
	SourceRoot string   `json:"sourceRoot"`
}

// mapping is one decoded entry from the "mappings" field: a generated
// position plus, when present, the original source it maps back to.
type mapping struct {
	genLine, genCol int
	hasSource       bool
	sourceIdx       int
	srcLine, srcCol int
	hasName         bool
	nameIdx         int
}

// Consumer resolves generated (line, column) positions to original source
// positions using a parsed source map. It is immutable after construction
// and safe for concurrent use.
type Consumer struct {
	sources []string
	names   []string
	// byGenLine indexes mappings by their generated line for fast lookup;
	// within a line, mappings are sorted by generated column ascending.
	byGenLine map[int][]mapping
}

// Parse decodes raw source-map-v3 JSON into a queryable Consumer.
func Parse(raw []byte) (*Consumer, error) {
	var sm rawSourceMap
	if err := json.Unmarshal(raw, &sm); err != nil {
		return nil, fmt.Errorf("sourcemap: invalid json: %w", err)
	}
	if sm.Version != 3 {
		return nil, fmt.Errorf("sourcemap: unsupported version %d", sm.Version)
	}

	c := &Consumer{
		sources:   sm.Sources,
		names:     sm.Names,
		byGenLine: make(map[int][]mapping),
	}

	genLine := 0
	genCol := 0
	srcIdx := 0
	srcLine := 0
	srcCol := 0
	nameIdx := 0

	for _, lineStr := range strings.Split(sm.Mappings, ";") {
		genCol = 0
		if lineStr != "" {
			for _, segStr := range strings.Split(lineStr, ",") {
				if segStr == "" {
					continue
				}
				fields, err := decodeVLQSegment(segStr)
				if err != nil {
					return nil, err
				}

				m := mapping{genLine: genLine}
				switch len(fields) {
				case 1:
					genCol += fields[0]
				case 4:
					genCol += fields[0]
					srcIdx += fields[1]
					srcLine += fields[2]
					srcCol += fields[3]
					m.hasSource = true
				case 5:
					genCol += fields[0]
					srcIdx += fields[1]
					srcLine += fields[2]
					srcCol += fields[3]
					nameIdx += fields[4]
					m.hasSource = true
					m.hasName = true
					m.nameIdx = nameIdx
				default:
					return nil, fmt.Errorf("sourcemap: unexpected field count %d", len(fields))
				}

				m.genCol = genCol
				if m.hasSource {
					m.sourceIdx = srcIdx
					m.srcLine = srcLine
					m.srcCol = srcCol
				}
				c.byGenLine[genLine] = append(c.byGenLine[genLine], m)
			}
		}
		genLine++
	}

	return c, nil
}

// Original is the resolved position plus the originating source file and,
// when available, the enclosing symbol name.
type Original struct {
	Source string
	Line   int
	Column int
	Name   string
	Found  bool
}

// OriginalPosition resolves a 0-indexed generated (line, column) to its
// original source position. It returns the mapping whose generated column
// is the greatest value not exceeding the requested column, matching how
// source-map consumers resolve positions that fall inside a mapped span
// rather than exactly on a recorded boundary.
func (c *Consumer) OriginalPosition(genLine, genCol int) Original {
	candidates := c.byGenLine[genLine]
	if len(candidates) == 0 {
		return Original{}
	}

	best := -1
	for i, m := range candidates {
		if m.genCol <= genCol {
			best = i
		} else {
			break
		}
	}
	if best < 0 || !candidates[best].hasSource {
		return Original{}
	}

	m := candidates[best]
	var source string
	if m.sourceIdx >= 0 && m.sourceIdx < len(c.sources) {
		source = c.sources[m.sourceIdx]
	}
	var name string
	if m.hasName && m.nameIdx >= 0 && m.nameIdx < len(c.names) {
		name = c.names[m.nameIdx]
	}

	return Original{
		Source: source,
		Line:   m.srcLine,
		Column: m.srcCol,
		Name:   name,
		Found:  true,
	}
}
