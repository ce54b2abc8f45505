package schedule

import (
	"errors"
	"fmt"
	"sort"

	"demeter/internal/models"
)

// Position says where a dragged task lands relative to the drop target.
type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
	PositionChild  Position = "child"
)

// ParsePosition validates a raw position name.
func ParsePosition(raw string) (Position, error) {
	switch p := Position(raw); p {
	case PositionBefore, PositionAfter, PositionChild:
		return p, nil
	}
	return "", fmt.Errorf("unknown position %q, expected before, after or child", raw)
}

// precisionFloor is the smallest sibling gap Between may split.
const precisionFloor = 1e-9

var (
	ErrSelfDrop   = errors.New("a task cannot be dropped onto itself")
	ErrCyclicDrop = errors.New("a task cannot be moved under its own descendant")
)

// Placement is the outcome of a drop: the new parent and order of the
// dragged task.
type Placement struct {
	ParentID *models.ID
	Order    float64
	// Renormalize is set when the order gap is too small to split, for
	// instance between two siblings sharing an order. Sequence then holds
	// the new parent's children, dragged task included, in their intended
	// display order; Sequential turns it into orders 1..n.
	Renormalize bool
	Sequence    []models.ID
}

// Between returns the midpoint of two sibling orders.
func Between(lo, hi float64) float64 {
	return lo + (hi-lo)/2
}

// NeedsRenormalize reports whether lo and hi are too close to split again.
func NeedsRenormalize(lo, hi float64) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	mid := Between(lo, hi)
	return hi-lo < precisionFloor || mid <= lo || mid >= hi
}

type sibling struct {
	id    models.ID
	order float64
}

// siblingsOf returns the children of parent in display order, skipping
// exclude. Tasks without an order follow the last ordered one.
func siblingsOf(tasks []models.ProjectTask, parent *models.ID, exclude models.ID) []sibling {
	var group []models.ProjectTask
	for _, t := range tasks {
		if t.ID == exclude || !sameParent(t.ParentID, parent) {
			continue
		}
		group = append(group, t)
	}
	sortByOrder(group)

	out := make([]sibling, 0, len(group))
	last := 0.0
	for _, t := range group {
		v := last + 1
		if t.Order != nil {
			v = *t.Order
		}
		out = append(out, sibling{id: t.ID, order: v})
		last = v
	}
	return out
}

func sortByOrder(tasks []models.ProjectTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].Order, tasks[j].Order
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}

func sameParent(a, b *models.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Place computes where dragged ends up when dropped on target.
func Place(tasks []models.ProjectTask, draggedID, targetID models.ID, pos Position) (Placement, error) {
	if draggedID == targetID {
		return Placement{}, ErrSelfDrop
	}
	byID := make(map[models.ID]models.ProjectTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	if _, ok := byID[draggedID]; !ok {
		return Placement{}, fmt.Errorf("task %s not found", draggedID)
	}
	target, ok := byID[targetID]
	if !ok {
		return Placement{}, fmt.Errorf("task %s not found", targetID)
	}
	if isDescendant(byID, targetID, draggedID) {
		return Placement{}, ErrCyclicDrop
	}

	if pos == PositionChild {
		children := siblingsOf(tasks, &target.ID, draggedID)
		next := 1.0
		if n := len(children); n > 0 {
			next = children[n-1].order + 1
		}
		parent := target.ID
		return Placement{ParentID: &parent, Order: next}, nil
	}

	siblings := siblingsOf(tasks, target.ParentID, draggedID)
	idx := -1
	for i, s := range siblings {
		if s.id == targetID {
			idx = i
			break
		}
	}
	at := siblings[idx].order

	var lo, hi float64
	switch pos {
	case PositionBefore:
		lo, hi = at-1, at
		if idx > 0 {
			lo = siblings[idx-1].order
		}
	case PositionAfter:
		lo, hi = at, at+1
		if idx+1 < len(siblings) {
			hi = siblings[idx+1].order
		}
	default:
		return Placement{}, fmt.Errorf("unknown position %q", pos)
	}

	p := Placement{ParentID: copyID(target.ParentID), Order: Between(lo, hi)}
	if NeedsRenormalize(lo, hi) {
		insertAt := idx
		if pos == PositionAfter {
			insertAt = idx + 1
		}
		p.Renormalize = true
		p.Sequence = make([]models.ID, 0, len(siblings)+1)
		for i, s := range siblings {
			if i == insertAt {
				p.Sequence = append(p.Sequence, draggedID)
			}
			p.Sequence = append(p.Sequence, s.id)
		}
		if insertAt == len(siblings) {
			p.Sequence = append(p.Sequence, draggedID)
		}
	}
	return p, nil
}

// isDescendant reports whether id sits in the subtree rooted at root.
func isDescendant(byID map[models.ID]models.ProjectTask, id, root models.ID) bool {
	seen := map[models.ID]bool{}
	for cur, ok := byID[id]; ok && cur.ParentID != nil; cur, ok = byID[*cur.ParentID] {
		if *cur.ParentID == root {
			return true
		}
		if seen[cur.ID] {
			return false
		}
		seen[cur.ID] = true
	}
	return false
}

// Renormalize renumbers siblings to 1..n keeping their display order.
func Renormalize(siblings []models.ProjectTask) map[models.ID]float64 {
	ordered := append([]models.ProjectTask(nil), siblings...)
	sortByOrder(ordered)
	ids := make([]models.ID, len(ordered))
	for i, t := range ordered {
		ids[i] = t.ID
	}
	return Sequential(ids)
}

// Sequential numbers ids 1..n in the given order.
func Sequential(ids []models.ID) map[models.ID]float64 {
	out := make(map[models.ID]float64, len(ids))
	for i, id := range ids {
		out[id] = float64(i + 1)
	}
	return out
}

func copyID(id *models.ID) *models.ID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
