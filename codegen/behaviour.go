package codegen

// Behaviour tells the generation unit how to continue the traversal after an
// entity was processed. Values are ordered from least to most restrictive.
type Behaviour uint8

const (
	// Continue visits the entity's children, then its next sibling.
	Continue Behaviour = iota
	// SkipChildren moves on to the next sibling without visiting children.
	SkipChildren
	// Break leaves the current nesting level: no children, no further siblings.
	Break
	// Abort stops the traversal of the whole file and fails its generation unit.
	Abort
)

// Combine returns the most restrictive of a and b.
func Combine(a, b Behaviour) Behaviour {
	if b > a {
		return b
	}
	return a
}

func (b Behaviour) String() string {
	switch b {
	case Continue:
		return "continue"
	case SkipChildren:
		return "skip_children"
	case Break:
		return "break"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Point is an insertion point of the generated artifacts.
type Point uint8

const (
	HeaderPrologue Point = iota
	BodyFooter
	HeaderEpilogue
	SourcePrologue
)

// Points lists the insertion points in invocation order.
var Points = [...]Point{HeaderPrologue, BodyFooter, HeaderEpilogue, SourcePrologue}

func (p Point) String() string {
	switch p {
	case HeaderPrologue:
		return "header_prologue"
	case BodyFooter:
		return "body_footer"
	case HeaderEpilogue:
		return "header_epilogue"
	case SourcePrologue:
		return "source_prologue"
	default:
		return "unknown"
	}
}
