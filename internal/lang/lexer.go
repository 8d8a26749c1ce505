package lang

import "github.com/alecthomas/participle/v2/lexer"

// Lexer tokenizes the small imperative language internal/cfgbuild lowers
// into a call graph of CFGs: functions, let/assign, if/while, require
// (lowered to an assume), havoc, call, and return.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Int", `[0-9]+`, nil},
		{"Operator", `(<=|>=|==|!=|&&|\|\||[-+*/<>=!])`, nil},
		{"Punctuation", `[{}():;,]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
