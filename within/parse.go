package within

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseSelection builds a tree from GraphQL selection syntax, e.g.
// "{ author { books } comments }". A field with no sub-selection becomes a
// bare marker. Aliases, arguments, directives, and fragments are rejected.
//
// Note that "{}" is not valid selection syntax; use Empty for the
// forbid-all tree.
func ParseSelection(src string) (*Tree, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: src})
	if err != nil {
		return nil, fmt.Errorf("within: %w", err)
	}
	if len(doc.Operations) != 1 || len(doc.Fragments) != 0 {
		return nil, fmt.Errorf("within: expected a single bare selection set")
	}
	op := doc.Operations[0]
	if op.Operation != ast.Query || op.Name != "" {
		return nil, fmt.Errorf("within: expected a bare selection set, got a %s operation", op.Operation)
	}
	return fromSelectionSet(op.SelectionSet)
}

func fromSelectionSet(set ast.SelectionSet) (*Tree, error) {
	t := &Tree{children: make(map[string]*Tree, len(set))}
	for _, sel := range set {
		field, ok := sel.(*ast.Field)
		if !ok {
			return nil, fmt.Errorf("within: fragments are not supported")
		}
		if field.Alias != "" && field.Alias != field.Name {
			return nil, fmt.Errorf("within: aliases are not supported (field %q)", field.Name)
		}
		if len(field.Arguments) != 0 || len(field.Directives) != 0 {
			return nil, fmt.Errorf("within: arguments and directives are not supported (field %q)", field.Name)
		}
		if len(field.SelectionSet) == 0 {
			t.children[field.Name] = nil
			continue
		}
		child, err := fromSelectionSet(field.SelectionSet)
		if err != nil {
			return nil, err
		}
		t.children[field.Name] = child
	}
	return t, nil
}
