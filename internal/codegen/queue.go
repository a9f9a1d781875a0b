package codegen

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"hintcheck/internal/sane"
)

// node is one unit of per-hint-subtree metadata driving the iterative
// traversal. Nodes are arena-allocated inside a queue and addressed by
// index; every field is populated before the node is dispatched.
type node struct {
	sane        *sane.Sane
	placeholder string
	pithExpr    string
	pithVarIdx  int
	indent      int
}

// initialQueueCap sizes a fresh queue's node arena. The arena grows on
// demand; the cursor-only-advances invariant holds regardless.
const initialQueueCap = 64

// callSeq distinguishes generation calls so that placeholder tokens are
// unique per queue slot per call.
var callSeq atomic.Uint64

// Queue is the reusable breadth-first traversal state for one generation
// call: the node arena, the accumulating code buffer, and the wrapper
// scope. Acquired from a Pool, reinit-ed, drained, released. Never shared
// between concurrent calls.
type Queue struct {
	nodes []node
	last  int // high-water mark: index of the last enqueued node
	cur   int // cursor: index of the node being dispatched

	callID    uint64
	code      string
	scope     map[string]any
	relRefs   []string
	litSeq    int
	needsRand bool
}

func newQueue() *Queue {
	return &Queue{nodes: make([]node, 0, initialQueueCap)}
}

// reinit prepares a pooled queue for a fresh generation call.
func (q *Queue) reinit() {
	q.nodes = q.nodes[:0]
	q.last = -1
	q.cur = 0
	q.callID = callSeq.Add(1)
	q.code = ""
	q.scope = make(map[string]any)
	q.relRefs = nil
	q.litSeq = 0
	q.needsRand = false
}

// enqueue appends a node and returns its placeholder token.
func (q *Queue) enqueue(s *sane.Sane, pithExpr string, indent, pithVarIdx int) string {
	q.last++
	ph := fmt.Sprintf("@[%d~%d]!", q.callID, q.last)
	q.nodes = append(q.nodes, node{
		sane:        s,
		placeholder: ph,
		pithExpr:    pithExpr,
		pithVarIdx:  pithVarIdx,
		indent:      indent,
	})
	return ph
}

// addScope injects an object into the wrapper scope under name. Scope
// names are deterministic per semantic identity, so re-adding the same
// name is idempotent by construction.
func (q *Queue) addScope(name string, obj any) string {
	if _, ok := q.scope[name]; !ok {
		q.scope[name] = obj
	}
	return name
}

func identSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Pool is the process-wide recycler of queues. Acquire-or-allocate and
// release are atomic so that two concurrent generation calls never share
// one queue instance.
type Pool struct {
	mu   sync.Mutex
	free []*Queue
}

// NewPool returns an empty pool.
func NewPool() *Pool { return &Pool{} }

// Acquire returns a queue for exclusive use by one generation call.
func (p *Pool) Acquire() *Queue {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		q := p.free[n-1]
		p.free = p.free[:n-1]
		return q
	}
	return newQueue()
}

// Release returns a queue to the pool. Safe to call after an error: reinit
// clears all per-call state on the next acquire.
func (p *Pool) Release(q *Queue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, q)
}
