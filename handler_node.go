package dromos

// AnyVerb is the verb of bindings that match every verb for their segment.
const AnyVerb = "any"

// WSVerb is the virtual verb used to dispatch websocket upgrade requests.
const WSVerb = "ws"

// HandlerNode is one binding in a Router's chain.
type HandlerNode struct {
	Verb    string
	Segment string
	Handler HandlerFunc
	Next    *HandlerNode
}

func (n *HandlerNode) matches(verb, segment string) bool {
	return n.Verb == verb && n.Segment == segment
}
