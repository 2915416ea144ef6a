package hostlang

import "strings"

type NodeKind int

const (
	KindError NodeKind = iota

	KindProgram

	// Declarations
	KindFunctionDecl
	KindClassDecl
	KindParameters
	KindParameter
	KindDefaultParameter
	KindRestParameter
	KindPatternParameter

	// Statements
	KindBlock
	KindEmptyStmt
	KindExprStmt
	KindVarDecl
	KindIfStmt
	KindSwitchStmt
	KindSwitchCase
	KindReturnStmt
	KindThrowStmt
	KindTryStmt
	KindCatchClause
	KindFinallyClause
	KindForStmt
	KindWhileStmt
	KindDoStmt
	KindBreakStmt
	KindContinueStmt
	KindLabeledStmt

	// Expressions are kept opaque.
	KindExpr
	KindIdentifier
)

var nodeKindNames = map[NodeKind]string{
	KindError:            "Error",
	KindProgram:          "Program",
	KindFunctionDecl:     "FunctionDeclaration",
	KindClassDecl:        "ClassDeclaration",
	KindParameters:       "Parameters",
	KindParameter:        "Parameter",
	KindDefaultParameter: "AssignmentPattern",
	KindRestParameter:    "RestElement",
	KindPatternParameter: "Pattern",
	KindBlock:            "BlockStatement",
	KindEmptyStmt:        "EmptyStatement",
	KindExprStmt:         "ExpressionStatement",
	KindVarDecl:          "VariableDeclaration",
	KindIfStmt:           "IfStatement",
	KindSwitchStmt:       "SwitchStatement",
	KindSwitchCase:       "SwitchCase",
	KindReturnStmt:       "ReturnStatement",
	KindThrowStmt:        "ThrowStatement",
	KindTryStmt:          "TryStatement",
	KindCatchClause:      "CatchClause",
	KindFinallyClause:    "FinallyClause",
	KindForStmt:          "ForStatement",
	KindWhileStmt:        "WhileStatement",
	KindDoStmt:           "DoWhileStatement",
	KindBreakStmt:        "BreakStatement",
	KindContinueStmt:     "ContinueStatement",
	KindLabeledStmt:      "LabeledStatement",
	KindExpr:             "Expression",
	KindIdentifier:       "Identifier",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Node is a statement-level syntax tree node.
//
// Children layout per kind:
//
//	FunctionDecl:     Identifier, Parameters, Block
//	ClassDecl:        Identifier (optional)
//	DefaultParameter: Identifier, Expr
//	IfStmt:           Expr, consequent, alternate (optional)
//	SwitchStmt:       Expr, SwitchCase...
//	SwitchCase:       Expr (absent for default), statements...
//	ReturnStmt:       Expr (optional)
//	TryStmt:          Block, CatchClause (optional), FinallyClause (optional)
//	CatchClause:      Identifier (optional), Block
//	FinallyClause:    Block
//	For/While/Do:     Expr (optional), body
//	LabeledStmt:      Identifier, body
type Node struct {
	Kind     NodeKind
	Span     Span
	Children []*Node
	Token    *Token
}

func (n *Node) AddChild(child *Node) {
	if child != nil {
		n.Children = append(n.Children, child)
	}
}

func (n *Node) FirstChildOfKind(kind NodeKind) *Node {
	for _, child := range n.Children {
		if child.Kind == kind {
			return child
		}
	}
	return nil
}

func (n *Node) ChildrenOfKind(kind NodeKind) []*Node {
	var result []*Node
	for _, child := range n.Children {
		if child.Kind == kind {
			result = append(result, child)
		}
	}
	return result
}

func (n *Node) TokenLiteral() string {
	if n.Token != nil {
		return n.Token.Literal
	}
	return ""
}

// Name returns the declared name of a function or class declaration.
func (n *Node) Name() string {
	if id := n.FirstChildOfKind(KindIdentifier); id != nil {
		return id.TokenLiteral()
	}
	return ""
}

// Params returns the parameter nodes of a function declaration.
func (n *Node) Params() []*Node {
	if params := n.FirstChildOfKind(KindParameters); params != nil {
		return params.Children
	}
	return nil
}

// Body returns the body block of a function declaration.
func (n *Node) Body() *Node {
	return n.FirstChildOfKind(KindBlock)
}

func (n *Node) String() string {
	var sb strings.Builder
	n.writeIndent(&sb, 0)
	return sb.String()
}

func (n *Node) writeIndent(sb *strings.Builder, indent int) {
	sb.WriteString(strings.Repeat("  ", indent))
	sb.WriteString(n.Kind.String())
	if n.Token != nil {
		sb.WriteString(" ")
		sb.WriteString(n.Token.Literal)
	}
	sb.WriteString("\n")
	for _, child := range n.Children {
		child.writeIndent(sb, indent+1)
	}
}
