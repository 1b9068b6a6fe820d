package vals

// Node is a resolved component invocation.
type Node struct {
	// Name is the qualified name of the component, like "ftd#text".
	Name string `json:"component" yaml:"component"`
	// Properties maps argument names to resolved values. Arguments that were
	// not passed and have no default are absent.
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	// Refs maps the names of mutable arguments to the qualified names of the
	// variables passed to them.
	Refs      map[string]string `json:"refs,omitempty" yaml:"refs,omitempty"`
	Loop      *Loop             `json:"loop,omitempty" yaml:"loop,omitempty"`
	Condition *Condition        `json:"condition,omitempty" yaml:"condition,omitempty"`
	Events    []*Event          `json:"events,omitempty" yaml:"events,omitempty"`
	Children  []*Node           `json:"children,omitempty" yaml:"children,omitempty"`
	// Expanded is the body of a user-defined component with the arguments
	// of this invocation bound.
	Expanded *Node `json:"expanded,omitempty" yaml:"expanded,omitempty"`
	// Instances has one node per element for an invocation with a Loop.
	Instances []*Node `json:"instances,omitempty" yaml:"instances,omitempty"`
	ID        string  `json:"id,omitempty" yaml:"id,omitempty"`
	Line      int     `json:"line" yaml:"line"`
}

// Loop describes the iteration of a looped invocation.
type Loop struct {
	// On is the qualified name of the list variable or the expression
	// producing the list.
	On      string `json:"on" yaml:"on"`
	Alias   string `json:"alias" yaml:"alias"`
	Counter string `json:"counter,omitempty" yaml:"counter,omitempty"`
}

// Condition is the condition of an invocation together with its value at
// resolution time.
type Condition struct {
	Expression string `json:"expression" yaml:"expression"`
	Value      bool   `json:"value" yaml:"value"`
}

// Event is an event handler of an invocation.
type Event struct {
	Name   string `json:"name" yaml:"name"`
	Action string `json:"action" yaml:"action"`
	// Function is the qualified name of the function the action calls.
	Function string      `json:"function" yaml:"function"`
	Args     []*EventArg `json:"args,omitempty" yaml:"args,omitempty"`
}

// EventArg is an argument of an event action. Ref is set when the argument
// is a variable; Value is set otherwise.
type EventArg struct {
	Name  string `json:"name" yaml:"name"`
	Ref   string `json:"ref,omitempty" yaml:"ref,omitempty"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Walk calls f for n and every node below it, depth first. Expanded bodies
// and loop instances are visited too.
func (n *Node) Walk(f func(*Node)) {
	f(n)
	for _, c := range n.Children {
		c.Walk(f)
	}
	if n.Expanded != nil {
		n.Expanded.Walk(f)
	}
	for _, in := range n.Instances {
		in.Walk(f)
	}
}
