// Package forms rebuilds form key/value pairs from the block graph of a FORMS analysis.
//
// Raw records are validated into typed blocks by Parse, indexed by Classify, and
// reduced into an ordered field mapping by Extract. Everything here is pure and
// request-scoped.
package forms

import (
	"github.com/hyperjump/formkv/internal/models"
)

// Block is a validated annotation. The concrete types are *KeyBlock, *ValueBlock,
// *WordBlock, *SelectionBlock and *OtherBlock.
type Block interface {
	ID() string
	Relationships() []models.Relationship
}

type base struct {
	id   string
	rels []models.Relationship
}

func (b *base) ID() string                           { return b.id }
func (b *base) Relationships() []models.Relationship { return b.rels }

// KeyBlock is a KEY_VALUE_SET block carrying the KEY entity type.
type KeyBlock struct{ base }

// ValueBlock is any other KEY_VALUE_SET block.
type ValueBlock struct{ base }

// WordBlock is a WORD block.
type WordBlock struct {
	base
	Text string
}

// SelectionBlock is a SELECTION_ELEMENT block.
type SelectionBlock struct {
	base
	Selected bool
}

// OtherBlock is any block type the extractor does not interpret (PAGE, LINE, TABLE, ...).
type OtherBlock struct {
	base
	Type string
}

// NewKeyBlock builds a key block.
func NewKeyBlock(id string, rels ...models.Relationship) *KeyBlock {
	return &KeyBlock{base{id: id, rels: rels}}
}

// NewValueBlock builds a value block.
func NewValueBlock(id string, rels ...models.Relationship) *ValueBlock {
	return &ValueBlock{base{id: id, rels: rels}}
}

// NewWordBlock builds a word block.
func NewWordBlock(id, text string) *WordBlock {
	return &WordBlock{base: base{id: id}, Text: text}
}

// NewSelectionBlock builds a selection element block.
func NewSelectionBlock(id string, selected bool) *SelectionBlock {
	return &SelectionBlock{base: base{id: id}, Selected: selected}
}

// Parse validates raw records and converts them into typed blocks, preserving order.
// It fails on the first malformed record.
func Parse(raw []models.Block) ([]Block, error) {
	out := make([]Block, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i := range raw {
		b, err := parseOne(i, &raw[i])
		if err != nil {
			return nil, err
		}
		if _, dup := seen[b.ID()]; dup {
			return nil, &ParseError{Index: i, ID: b.ID(), Reason: "duplicate block id"}
		}
		seen[b.ID()] = struct{}{}
		out = append(out, b)
	}
	return out, nil
}

func parseOne(i int, r *models.Block) (Block, error) {
	if r.ID == "" {
		return nil, &ParseError{Index: i, Reason: "missing Id"}
	}
	if r.BlockType == "" {
		return nil, &ParseError{Index: i, ID: r.ID, Reason: "missing BlockType"}
	}
	for _, rel := range r.Relationships {
		if rel.Type == "" {
			return nil, &ParseError{Index: i, ID: r.ID, Reason: "relationship without Type"}
		}
	}
	b := base{id: r.ID, rels: r.Relationships}

	switch r.BlockType {
	case models.BlockTypeKeyValueSet:
		if r.HasEntityType(models.EntityTypeKey) {
			return &KeyBlock{b}, nil
		}
		return &ValueBlock{b}, nil
	case models.BlockTypeWord:
		if r.Text == nil {
			return nil, &ParseError{Index: i, ID: r.ID, Reason: "WORD block without Text"}
		}
		return &WordBlock{base: b, Text: *r.Text}, nil
	case models.BlockTypeSelectionElement:
		if r.SelectionStatus == nil {
			return nil, &ParseError{Index: i, ID: r.ID, Reason: "SELECTION_ELEMENT block without SelectionStatus"}
		}
		switch *r.SelectionStatus {
		case models.SelectionSelected:
			return &SelectionBlock{base: b, Selected: true}, nil
		case models.SelectionNotSelected:
			return &SelectionBlock{base: b}, nil
		default:
			return nil, &ParseError{Index: i, ID: r.ID, Reason: "unknown SelectionStatus " + *r.SelectionStatus}
		}
	default:
		return &OtherBlock{base: b, Type: r.BlockType}, nil
	}
}
