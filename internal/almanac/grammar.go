package almanac

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Numbers are captured as text and converted with base 10 so leading zeros
// and out-of-range values are reported against their row.
type fileAST struct {
	Seeds *seedsAST `parser:"EOL? @@?"`
	Maps  []*mapAST `parser:"@@*"`
}

type seedsAST struct {
	Pos    lexer.Position
	Values []string `parser:"\"seeds:\" @Number* EOL"`
}

type mapAST struct {
	Pos    lexer.Position
	Header string    `parser:"@Header EOL"`
	Rows   []*rowAST `parser:"@@*"`
}

type rowAST struct {
	Pos    lexer.Position
	Dest   string `parser:"@Number"`
	Source string `parser:"@Number"`
	Length string `parser:"@Number EOL"`
}

var almanacLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Line ends, swallowing blank and whitespace-only lines.
	{Name: "EOL", Pattern: `(?:[ \t]*\r?\n)+`},
	// "seeds:", "seed-to-soil map:", any non-numeric label up to a colon.
	{Name: "Header", Pattern: `[A-Za-z_][^:\r\n]*:`},
	{Name: "Number", Pattern: `[-+]?\d+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var almanacParser = participle.MustBuild[fileAST](
	participle.Lexer(almanacLexer),
	participle.Elide("Whitespace"),
)
