package almanac

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/obsidianstack/rangeshift/internal/rangemap"
)

// Row is one (dest, source, length) entry of a map.
type Row struct {
	Dest   int64
	Source int64
	Length int64
	Line   int
}

// Map is one named translation table.
type Map struct {
	Name string // header text before "map:", e.g. "seed-to-soil"
	Line int
	Rows []Row
}

// Almanac is a parsed input file.
type Almanac struct {
	Seeds []int64
	Maps  []Map
}

// Parse reads the whole of r and parses it.
func Parse(r io.Reader) (*Almanac, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("almanac: read: %w", err)
	}
	return ParseBytes(data)
}

// ParseString parses s.
func ParseString(s string) (*Almanac, error) {
	return ParseBytes([]byte(s))
}

// ParseBytes parses data.
func ParseBytes(data []byte) (*Almanac, error) {
	// Every row must end in EOL.
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(append(make([]byte, 0, len(data)+1), data...), '\n')
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMissingSeeds)
	}

	ast, err := almanacParser.ParseBytes("", data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	if ast.Seeds == nil {
		return nil, fmt.Errorf("%w: first line must start with \"seeds:\"", ErrMissingSeeds)
	}
	if len(ast.Seeds.Values) == 0 {
		return nil, fmt.Errorf("%w: seeds line lists no values", ErrMissingSeeds)
	}

	out := &Almanac{Seeds: make([]int64, 0, len(ast.Seeds.Values))}
	for i, s := range ast.Seeds.Values {
		v, err := parseInt(s)
		if err != nil {
			return nil, fmt.Errorf("%w: seed %d: %w", ErrSyntax, i, err)
		}
		out.Seeds = append(out.Seeds, v)
	}

	for _, m := range ast.Maps {
		name := mapName(m.Header)
		if name == "seeds" {
			return nil, fmt.Errorf("%w: line %d: duplicate seeds line", ErrSyntax, m.Pos.Line)
		}
		mp := Map{Name: name, Line: m.Pos.Line, Rows: make([]Row, 0, len(m.Rows))}
		for i, r := range m.Rows {
			row, err := convertRow(r)
			if err != nil {
				return nil, &RowError{Map: name, Row: i, Line: r.Pos.Line, Err: fmt.Errorf("%w: %w", ErrSyntax, err)}
			}
			mp.Rows = append(mp.Rows, row)
		}
		out.Maps = append(out.Maps, mp)
	}
	return out, nil
}

// Stages builds one rangemap.Stage per map, in file order.
func (a *Almanac) Stages() ([]rangemap.Stage, error) {
	stages := make([]rangemap.Stage, 0, len(a.Maps))
	for _, m := range a.Maps {
		rules := make([]rangemap.Rule, 0, len(m.Rows))
		for i, row := range m.Rows {
			r, err := rangemap.NewRule(row.Dest, row.Source, row.Length)
			if err != nil {
				return nil, &RowError{Map: m.Name, Row: i, Line: row.Line, Err: err}
			}
			rules = append(rules, r)
		}
		stages = append(stages, rangemap.NewStage(m.Name, rules...))
	}
	return stages, nil
}

// Intervals returns the initial intervals for mode.
func (a *Almanac) Intervals(mode Mode) ([]rangemap.Interval, error) {
	switch mode {
	case ModeValues:
		out := make([]rangemap.Interval, 0, len(a.Seeds))
		for i, s := range a.Seeds {
			iv, err := rangemap.NewInterval(s, 1)
			if err != nil {
				return nil, fmt.Errorf("almanac: seed %d: %w", i, err)
			}
			out = append(out, iv)
		}
		return out, nil

	case ModeRanges:
		if len(a.Seeds)%2 != 0 {
			return nil, fmt.Errorf("%w: got %d", ErrOddSeedCount, len(a.Seeds))
		}
		out := make([]rangemap.Interval, 0, len(a.Seeds)/2)
		for i := 0; i < len(a.Seeds); i += 2 {
			iv, err := rangemap.NewInterval(a.Seeds[i], a.Seeds[i+1])
			if err != nil {
				return nil, fmt.Errorf("almanac: seed pair %d: %w", i/2, err)
			}
			out = append(out, iv)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
}

// Pipeline is shorthand for building the stages and wrapping them.
func (a *Almanac) Pipeline() (*rangemap.Pipeline, error) {
	stages, err := a.Stages()
	if err != nil {
		return nil, err
	}
	return rangemap.New(stages...), nil
}

// ReadFile returns the contents of path, decompressed when the name ends in
// ".xz".
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("almanac: open: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("almanac: xz %s: %w", path, err)
		}
		r = xr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("almanac: read %s: %w", path, err)
	}
	return data, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Almanac, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// --- internal ---------------------------------------------------------------

func convertRow(r *rowAST) (Row, error) {
	dest, err := parseInt(r.Dest)
	if err != nil {
		return Row{}, err
	}
	src, err := parseInt(r.Source)
	if err != nil {
		return Row{}, err
	}
	n, err := parseInt(r.Length)
	if err != nil {
		return Row{}, err
	}
	return Row{Dest: dest, Source: src, Length: n, Line: r.Pos.Line}, nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// mapName strips the trailing ':' and an optional " map" from a header.
func mapName(header string) string {
	name := strings.TrimSpace(strings.TrimSuffix(header, ":"))
	return strings.TrimSpace(strings.TrimSuffix(name, " map"))
}
