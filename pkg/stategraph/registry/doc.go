// Package registry provides a generic thread-safe registry for values indexed
// by an ordered key.
//
// The workflow catalog uses it to map workflow names to their builders:
//
//	workflows := registry.New[string, Workflow]()
//	workflows.MustRegister("hello", helloWorkflow)
//
//	wf, err := workflows.Lookup(name)
//	if err != nil {
//	    return err // names the known workflows
//	}
//
// Keys and All are ordered by key, so listings are stable. Register refuses
// duplicates with ErrDuplicate.
package registry
