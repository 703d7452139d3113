package ids

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewUUID returns a random entity id.
func NewUUID() string {
	return uuid.New().String()
}

// NewKSUID returns a sortable, globally unique id.
func NewKSUID() string {
	return ksuid.New().String()
}

// Sequence hands out snowflake ids for human-facing order numbers.
type Sequence struct {
	mu   sync.Mutex
	node *snowflake.Node
}

// NewSequence creates a Sequence for the given node. If the node id is out of
// range the sequence falls back to KSUIDs.
func NewSequence(nodeID int64) *Sequence {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return &Sequence{}
	}
	return &Sequence{node: node}
}

// Next returns the next id.
func (s *Sequence) Next() string {
	if s == nil || s.node == nil {
		return NewKSUID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.node.Generate().String()
}
