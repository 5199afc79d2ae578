package dromos

import (
	"encoding/json"
)

// RouteDescriptor describes one binding of a Router. Only the bindings of the
// router itself are described; nested routers are built by handlers at request
// time and cannot be discovered ahead of time.
type RouteDescriptor struct {
	Verb    string
	Segment string
}

// MarshalJSON returns the JSON representation of the route descriptor.
func (r *RouteDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Verb    string `json:"verb"`
		Segment string `json:"segment"`
	}{
		Verb:    r.Verb,
		Segment: "/" + r.Segment,
	})
}

// RouteDescriptors returns a descriptor for every binding of the router, in
// the order they were bound.
func (r *Router) RouteDescriptors() []*RouteDescriptor {
	routeDescriptors := make([]*RouteDescriptor, 0, r.bindingCount)
	for currentNode := r.firstHandlerNode; currentNode != nil; currentNode = currentNode.Next {
		routeDescriptors = append(routeDescriptors, &RouteDescriptor{
			Verb:    currentNode.Verb,
			Segment: currentNode.Segment,
		})
	}
	return routeDescriptors
}
