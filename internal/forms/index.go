package forms

import (
	"strings"

	"github.com/hyperjump/formkv/internal/models"
)

const selectedMarker = "X"

// Index is the per-request lookup structure over one block list. Read-only after Classify.
type Index struct {
	blocks map[string]Block
	keys   []*KeyBlock
	values map[string]*ValueBlock
}

// Classify indexes every block by id and splits KEY_VALUE_SET blocks into key and value subsets in one pass.
// Key blocks keep their input order.
func Classify(blocks []Block) *Index {
	ix := &Index{
		blocks: make(map[string]Block, len(blocks)),
		values: make(map[string]*ValueBlock),
	}
	for _, b := range blocks {
		ix.blocks[b.ID()] = b
		switch v := b.(type) {
		case *KeyBlock:
			ix.keys = append(ix.keys, v)
		case *ValueBlock:
			ix.values[v.ID()] = v
		}
	}
	return ix
}

// Block returns the block with the given id.
func (ix *Index) Block(id string) (Block, bool) {
	b, ok := ix.blocks[id]
	return b, ok
}

// Keys returns the key blocks in input order.
func (ix *Index) Keys() []*KeyBlock {
	return append([]*KeyBlock(nil), ix.keys...)
}

// Len returns the number of indexed blocks.
func (ix *Index) Len() int { return len(ix.blocks) }

// ValueCount returns the number of value blocks.
func (ix *Index) ValueCount() int { return len(ix.values) }

// ResolveValue returns the value block paired with key through its VALUE relationship.
// Exactly one referenced id is accepted across all VALUE relationships of the key.
func (ix *Index) ResolveValue(key *KeyBlock) (*ValueBlock, error) {
	var ids []string
	for _, rel := range key.Relationships() {
		if rel.Type == models.RelationshipValue {
			ids = append(ids, rel.IDs...)
		}
	}
	switch len(ids) {
	case 0:
		return nil, &LookupError{Kind: MissingValue, BlockID: key.ID()}
	case 1:
	default:
		return nil, &AmbiguousValueError{KeyID: key.ID(), ValueIDs: ids}
	}
	v, ok := ix.values[ids[0]]
	if !ok {
		return nil, &LookupError{Kind: UnknownValue, BlockID: key.ID(), RefID: ids[0]}
	}
	return v, nil
}

// Text materializes the display text of b from its CHILD relationships. Each word
// contributes its text plus a space and each selected checkbox contributes "X ".
// The trailing space is kept.
func (ix *Index) Text(b Block) (string, error) {
	var sb strings.Builder
	for _, rel := range b.Relationships() {
		if rel.Type != models.RelationshipChild {
			continue
		}
		for _, id := range rel.IDs {
			child, ok := ix.blocks[id]
			if !ok {
				return "", &LookupError{Kind: UnknownChild, BlockID: b.ID(), RefID: id}
			}
			switch c := child.(type) {
			case *WordBlock:
				sb.WriteString(c.Text)
				sb.WriteByte(' ')
			case *SelectionBlock:
				if c.Selected {
					sb.WriteString(selectedMarker)
					sb.WriteByte(' ')
				}
			}
		}
	}
	return sb.String(), nil
}
