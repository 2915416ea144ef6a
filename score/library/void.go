package library

import (
	"fmt"

	"github.com/dhamidi/tmlex/hostlang"
)

// VoidError reports a function whose void-ness cannot be decided.
type VoidError struct {
	Pos     hostlang.Position
	Message string
}

func (e *VoidError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// IsVoid reports whether every return in a function's body is a bare return.
// Both branches of an if count, and every case of a switch; a try counts its
// block, handler and finalizer. A nested function or class declaration makes
// the function non-void. Any throw makes the analysis fail with a *VoidError.
func IsVoid(fn *hostlang.Node) (bool, error) {
	body := fn.Body()
	if body == nil {
		return true, nil
	}
	return walkVoid(body)
}

func walkVoid(n *hostlang.Node) (bool, error) {
	switch n.Kind {
	case hostlang.KindReturnStmt:
		return len(n.Children) == 0, nil

	case hostlang.KindFunctionDecl, hostlang.KindClassDecl:
		return false, nil

	case hostlang.KindThrowStmt:
		return false, &VoidError{Pos: n.Span.Start, Message: "throw makes the return kind unknown"}

	case hostlang.KindBlock, hostlang.KindTryStmt, hostlang.KindCatchClause,
		hostlang.KindFinallyClause, hostlang.KindSwitchStmt, hostlang.KindSwitchCase:
		return allVoid(statements(n))

	case hostlang.KindIfStmt:
		// test, consequent and the optional alternate
		return allVoid(n.Children[1:])

	case hostlang.KindForStmt, hostlang.KindWhileStmt, hostlang.KindDoStmt, hostlang.KindLabeledStmt:
		return walkVoid(n.Children[len(n.Children)-1])
	}
	return true, nil
}

// statements drops the expression and identifier parts of a compound
// statement, leaving its nested statements.
func statements(n *hostlang.Node) []*hostlang.Node {
	var out []*hostlang.Node
	for _, child := range n.Children {
		if child.Kind == hostlang.KindExpr || child.Kind == hostlang.KindIdentifier {
			continue
		}
		out = append(out, child)
	}
	return out
}

// allVoid walks every node, so a throw is found even after a non-void path.
func allVoid(nodes []*hostlang.Node) (bool, error) {
	void := true
	for _, n := range nodes {
		ok, err := walkVoid(n)
		if err != nil {
			return false, err
		}
		void = void && ok
	}
	return void, nil
}
