package forms

import (
	"github.com/hyperjump/formkv/internal/models"
)

// Extract pairs every key block with its value block and returns key text → value text.
// Keys are visited in input order; when two keys materialize to the same text the later
// value wins and the key keeps its first position. Any lookup failure aborts the whole
// extraction.
func Extract(blocks []Block) (*models.Fields, error) {
	ix := Classify(blocks)
	fields := models.NewFields()
	for _, key := range ix.keys {
		value, err := ix.ResolveValue(key)
		if err != nil {
			return nil, err
		}
		keyText, err := ix.Text(key)
		if err != nil {
			return nil, err
		}
		valueText, err := ix.Text(value)
		if err != nil {
			return nil, err
		}
		fields.Set(keyText, valueText)
	}
	return fields, nil
}

// ExtractRaw validates raw records with Parse and then runs Extract.
func ExtractRaw(raw []models.Block) (*models.Fields, error) {
	blocks, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return Extract(blocks)
}
