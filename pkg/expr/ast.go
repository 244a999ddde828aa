package expr

// node is a parsed expression. Nodes are immutable once built so a compiled
// program can be evaluated concurrently.
type node interface {
	eval(s *evalState) (any, error)
}

type literalNode struct {
	value any
}

type nameNode struct {
	name string
	pos  int
}

type unaryNode struct {
	op      string
	operand node
	pos     int
}

type binaryNode struct {
	op    string
	left  node
	right node
	pos   int
}

// logicalNode implements `and`/`or`, which short-circuit and yield one of
// their operands rather than a bool.
type logicalNode struct {
	op    string
	left  node
	right node
}

type notNode struct {
	operand node
}

// compareNode holds a comparison chain: `a < b <= c` evaluates as
// `a < b and b <= c` with b evaluated once.
type compareNode struct {
	first    node
	ops      []string
	operands []node
	pos      []int
}

type conditionalNode struct {
	cond      node
	then      node
	otherwise node
}

type listNode struct {
	items []node
}

type callNode struct {
	name string
	args []node
	pos  int
}

// walk visits n and all of its children depth first.
func walk(n node, visit func(node)) {
	if n == nil {
		return
	}
	visit(n)
	switch typed := n.(type) {
	case unaryNode:
		walk(typed.operand, visit)
	case binaryNode:
		walk(typed.left, visit)
		walk(typed.right, visit)
	case logicalNode:
		walk(typed.left, visit)
		walk(typed.right, visit)
	case notNode:
		walk(typed.operand, visit)
	case compareNode:
		walk(typed.first, visit)
		for _, operand := range typed.operands {
			walk(operand, visit)
		}
	case conditionalNode:
		walk(typed.cond, visit)
		walk(typed.then, visit)
		walk(typed.otherwise, visit)
	case listNode:
		for _, item := range typed.items {
			walk(item, visit)
		}
	case callNode:
		for _, arg := range typed.args {
			walk(arg, visit)
		}
	}
}
