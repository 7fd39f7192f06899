package scoring

import "github.com/allbravos/styletelling-ai/internal/domain/taxonomy"

// Templates resolves the scoring prompt for one attribute.
type Templates interface {
	Attribute(name taxonomy.Name) string
}
