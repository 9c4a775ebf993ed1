package chunker

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// language couples a canonical language name with its grammar and the
// mapping from top-level AST node types to semantic chunk tags.
type language struct {
	name    string
	grammar *sitter.Language
	tags    nodeTagTable
}

// languageTable is the static extension registry. Being a fixed table
// (not runtime registration) keeps chunk output independent of
// initialization order.
var languageTable = map[string]*language{
	".go":  {name: "go", grammar: golang.GetLanguage(), tags: goTags},
	".py":  {name: "python", grammar: python.GetLanguage(), tags: pythonTags},
	".js":  {name: "javascript", grammar: javascript.GetLanguage(), tags: javascriptTags},
	".jsx": {name: "javascript", grammar: javascript.GetLanguage(), tags: javascriptTags},
	".mjs": {name: "javascript", grammar: javascript.GetLanguage(), tags: javascriptTags},
	".ts":  {name: "typescript", grammar: typescript.GetLanguage(), tags: typescriptTags},
	".tsx": {name: "tsx", grammar: tsx.GetLanguage(), tags: typescriptTags},
}

// languageForPath resolves the grammar for a file path, or nil when the
// extension has no registered parser and the fallback splitter applies.
func languageForPath(p string) *language {
	return languageTable[strings.ToLower(path.Ext(p))]
}

// fallbackLanguageName is the language reported for files chunked by the
// sliding-window splitter.
const fallbackLanguageName = "text"
