// Package ports defines the boundary interfaces of the harness: session
// persistence, distributed locking, and the backend executor that signs and
// forwards gateway calls. Adapters implement them; the runtime depends only
// on the interfaces.
package ports
