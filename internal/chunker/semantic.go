package chunker

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// parseSegments parses the content with the language's grammar and
// returns the top-level named nodes as segments in source order. A new
// parser instance is created per call; tree-sitter parsers are not safe
// to share across goroutines.
func parseSegments(ctx context.Context, content []byte, lang *language) ([]segment, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang.grammar)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New("tree-sitter returned no root node")
	}

	segs := make([]segment, 0, root.NamedChildCount())
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		start, end := int(n.StartByte()), int(n.EndByte())
		if end <= start {
			continue
		}
		segs = append(segs, segment{
			start: start,
			end:   end,
			tag:   lang.tags.tagFor(n.Type()),
		})
	}
	return segs, nil
}
