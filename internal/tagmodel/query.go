// Package tagmodel implements the read-side query and pagination layer
// over a schema.Group's tag hash: substring search by name, combined
// name/description/explicit-name filtering restricted to readable tags,
// and page-bounded variants that report the full match count alongside
// the page slice.
package tagmodel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/neuron-io/broker/internal/schema"
)

// byName orders tags deterministically for pagination; the data model
// itself is a hash, so without an explicit order a page boundary would
// be unstable across calls.
func byName(tags []*schema.Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
}

// GetAll returns every tag in the group, name-ordered.
func GetAll(g *schema.Group) []*schema.Tag {
	tags := g.GetAll()
	byName(tags)
	return tags
}

// Query returns tags whose name contains nameSubstr (case-sensitive,
// matching the source's plain substring semantics), name-ordered.
func Query(g *schema.Group, nameSubstr string) []*schema.Tag {
	all := g.GetAll()
	out := make([]*schema.Tag, 0, len(all))
	for _, t := range all {
		if strings.Contains(t.Name, nameSubstr) {
			out = append(out, t)
		}
	}
	byName(out)
	return out
}

// predicateEnv lists the per-tag variables of the query_readable
// predicate. compilePredicate and QueryReadable do not use this type:
// they declare an anonymous struct with these fields plus NameSubstr and
// DescSubstr.
type predicateEnv struct {
	Name        string
	Description string
	Readable    bool
	Explicit    bool
}

// compilePredicate builds the query_readable filter: a tag matches if
// it is readable AND (its name contains nameSubstr and its description
// contains descSubstr) OR its name is in the explicit set. Expressed as
// a compiled expr-lang program so the same predicate shape can be
// reused (and unit-tested) independently of the Go filtering loop.
func compilePredicate() (*vm.Program, error) {
	return expr.Compile(
		`Readable && ((Name contains NameSubstr && Description contains DescSubstr) || Explicit)`,
		expr.Env(struct {
			Name, Description, NameSubstr, DescSubstr string
			Readable, Explicit                        bool
		}{}),
	)
}

// QueryReadable returns readable tags (READ or SUBSCRIBE attribute set)
// matching nameSubstr in the name AND descSubstr in the description, or
// whose name appears in explicitNames regardless of the substring match,
// name-ordered.
func QueryReadable(g *schema.Group, nameSubstr, descSubstr string, explicitNames []string) ([]*schema.Tag, error) {
	prog, err := compilePredicate()
	if err != nil {
		return nil, fmt.Errorf("compile predicate: %w", err)
	}
	explicit := make(map[string]struct{}, len(explicitNames))
	for _, n := range explicitNames {
		explicit[n] = struct{}{}
	}

	all := g.GetAll()
	out := make([]*schema.Tag, 0, len(all))
	for _, t := range all {
		_, isExplicit := explicit[t.Name]
		env := struct {
			Name, Description, NameSubstr, DescSubstr string
			Readable, Explicit                        bool
		}{
			Name: t.Name, Description: t.Description,
			NameSubstr: nameSubstr, DescSubstr: descSubstr,
			Readable: t.Attrs.Readable(), Explicit: isExplicit,
		}
		res, err := expr.Run(prog, env)
		if err != nil {
			return nil, fmt.Errorf("run predicate: %w", err)
		}
		if match, ok := res.(bool); ok && match {
			out = append(out, t)
		}
	}
	byName(out)
	return out, nil
}

// Page bounds a slice at [offset, offset+size); an empty result for an
// out-of-range page is not an error.
func Page(tags []*schema.Tag, currentPage, pageSize int) []*schema.Tag {
	if pageSize <= 0 {
		return tags
	}
	offset := currentPage * pageSize
	if offset >= len(tags) || offset < 0 {
		return []*schema.Tag{}
	}
	end := offset + pageSize
	if end > len(tags) {
		end = len(tags)
	}
	return tags[offset:end]
}

// PagedResult pairs a page of tags with the total count of the filtered
// set the page was drawn from, not just the page length.
type PagedResult struct {
	Tags  []*schema.Tag
	Total int
}

// QueryPaged runs Query and returns a single page plus the full match count.
func QueryPaged(g *schema.Group, nameSubstr string, currentPage, pageSize int) PagedResult {
	all := Query(g, nameSubstr)
	return PagedResult{Tags: Page(all, currentPage, pageSize), Total: len(all)}
}

// QueryReadablePaged runs QueryReadable and returns a single page plus
// the full match count.
func QueryReadablePaged(g *schema.Group, nameSubstr, descSubstr string, explicitNames []string, currentPage, pageSize int) (PagedResult, error) {
	all, err := QueryReadable(g, nameSubstr, descSubstr, explicitNames)
	if err != nil {
		return PagedResult{}, err
	}
	return PagedResult{Tags: Page(all, currentPage, pageSize), Total: len(all)}, nil
}
