// Package idgen hands out 64-bit snowflake identifiers.
package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"

	"demeter/internal/models"
)

// Epoch is 2020-01-01T00:00:00Z in milliseconds.
const Epoch int64 = 1577836800000

const maxPartID = 31

var configure sync.Once

// Generator produces unique, time-ordered ids for one datacenter/machine pair.
type Generator struct {
	node *snowflake.Node
}

// New builds a generator. Both ids must be in 0..31.
func New(datacenterID, machineID int64) (*Generator, error) {
	if datacenterID < 0 || datacenterID > maxPartID {
		return nil, fmt.Errorf("datacenter id %d out of range 0..%d", datacenterID, maxPartID)
	}
	if machineID < 0 || machineID > maxPartID {
		return nil, fmt.Errorf("machine id %d out of range 0..%d", machineID, maxPartID)
	}
	configure.Do(func() {
		snowflake.Epoch = Epoch
	})

	node, err := snowflake.NewNode(datacenterID<<5 | machineID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

// Next returns a fresh id.
func (g *Generator) Next() models.ID {
	return models.ID(g.node.Generate().Int64())
}
