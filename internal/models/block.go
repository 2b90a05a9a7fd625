// Package models defines the wire records exchanged with the OCR service and the extraction results built from them.
package models

// Block types emitted by the form-analysis service.
const (
	BlockTypeKeyValueSet      = "KEY_VALUE_SET"
	BlockTypeWord             = "WORD"
	BlockTypeSelectionElement = "SELECTION_ELEMENT"
	BlockTypeLine             = "LINE"
	BlockTypePage             = "PAGE"
)

// Entity type marking a KEY_VALUE_SET block as the key side of a pair.
const (
	EntityTypeKey   = "KEY"
	EntityTypeValue = "VALUE"
)

// Relationship types.
const (
	RelationshipValue = "VALUE"
	RelationshipChild = "CHILD"
)

// Selection states of a SELECTION_ELEMENT block.
const (
	SelectionSelected    = "SELECTED"
	SelectionNotSelected = "NOT_SELECTED"
)

// FeatureForms is the analysis feature that produces key/value blocks.
const FeatureForms = "FORMS"

// Block is one raw annotation as returned by the analysis service.
// Text and SelectionStatus are pointers so that absence can be told apart from an empty value.
type Block struct {
	ID              string         `json:"Id"`
	BlockType       string         `json:"BlockType"`
	EntityTypes     []string       `json:"EntityTypes,omitempty"`
	Text            *string        `json:"Text,omitempty"`
	SelectionStatus *string        `json:"SelectionStatus,omitempty"`
	Confidence      float64        `json:"Confidence,omitempty"`
	Page            int            `json:"Page,omitempty"`
	Relationships   []Relationship `json:"Relationships,omitempty"`
}

// Relationship links a block to other blocks by id, in order.
type Relationship struct {
	Type string   `json:"Type"`
	IDs  []string `json:"Ids"`
}

// HasEntityType reports whether t is among the block's entity types.
func (b *Block) HasEntityType(t string) bool {
	for _, et := range b.EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

// AnalyzeResult is the part of an AnalyzeDocument response formkv consumes.
type AnalyzeResult struct {
	Blocks []Block `json:"Blocks"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
