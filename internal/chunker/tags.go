package chunker

import "github.com/driftdex/driftdex/pkg/types"

// nodeTagTable maps tree-sitter node types to semantic chunk tags.
// Node types absent from the table tag as plain text.
type nodeTagTable map[string]types.ChunkType

var goTags = nodeTagTable{
	"function_declaration": types.ChunkFunction,
	"method_declaration":   types.ChunkFunction,
	"type_declaration":     types.ChunkClass,
	"import_declaration":   types.ChunkImport,
	"package_clause":       types.ChunkImport,
	"const_declaration":    types.ChunkVariable,
	"var_declaration":      types.ChunkVariable,
	"if_statement":         types.ChunkControlFlow,
	"for_statement":        types.ChunkControlFlow,
	"expression_switch_statement": types.ChunkControlFlow,
	"type_switch_statement":       types.ChunkControlFlow,
	"select_statement":            types.ChunkControlFlow,
	"comment":                     types.ChunkComment,
}

var pythonTags = nodeTagTable{
	"function_definition":   types.ChunkFunction,
	"decorated_definition":  types.ChunkFunction,
	"class_definition":      types.ChunkClass,
	"import_statement":      types.ChunkImport,
	"import_from_statement": types.ChunkImport,
	"future_import_statement": types.ChunkImport,
	"expression_statement":    types.ChunkVariable,
	"assignment":              types.ChunkVariable,
	"if_statement":            types.ChunkControlFlow,
	"for_statement":           types.ChunkControlFlow,
	"while_statement":         types.ChunkControlFlow,
	"try_statement":           types.ChunkControlFlow,
	"with_statement":          types.ChunkControlFlow,
	"match_statement":         types.ChunkControlFlow,
	"comment":                 types.ChunkComment,
}

var javascriptTags = nodeTagTable{
	"function_declaration":           types.ChunkFunction,
	"generator_function_declaration": types.ChunkFunction,
	"method_definition":              types.ChunkFunction,
	"class_declaration":              types.ChunkClass,
	"import_statement":               types.ChunkImport,
	"export_statement":               types.ChunkVariable,
	"lexical_declaration":            types.ChunkVariable,
	"variable_declaration":           types.ChunkVariable,
	"if_statement":                   types.ChunkControlFlow,
	"for_statement":                  types.ChunkControlFlow,
	"for_in_statement":               types.ChunkControlFlow,
	"while_statement":                types.ChunkControlFlow,
	"switch_statement":               types.ChunkControlFlow,
	"try_statement":                  types.ChunkControlFlow,
	"comment":                        types.ChunkComment,
}

// TypeScript extends the JavaScript node set; build the table from it.
var typescriptTags = func() nodeTagTable {
	t := nodeTagTable{
		"interface_declaration":  types.ChunkClass,
		"type_alias_declaration": types.ChunkClass,
		"enum_declaration":       types.ChunkClass,
		"abstract_class_declaration": types.ChunkClass,
		"ambient_declaration":        types.ChunkVariable,
	}
	for k, v := range javascriptTags {
		t[k] = v
	}
	return t
}()

// tagFor resolves the semantic tag for a node type.
func (t nodeTagTable) tagFor(nodeType string) types.ChunkType {
	if tag, ok := t[nodeType]; ok {
		return tag
	}
	return types.ChunkText
}
