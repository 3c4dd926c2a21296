// Package docstore is a thin adapter over schema-less document databases.
// Handlers talk to a Store; each database engine plugs in as a Backend.
package docstore

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the store-native identifier key. It never leaves the adapter:
// Serialize renames it to "id".
const IDField = "_id"

// Document is a generic key/value document as stored in a collection.
type Document map[string]any

// hexer is implemented by store-native identifiers (ObjectID).
type hexer interface {
	Hex() string
}

// NewID returns a fresh identifier in ObjectID hex form. Backends without a
// native identifier type use it so ids look the same on every engine.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ToDocument converts a typed record into a generic document using its json
// field names. Empty "id" fields are dropped so the backend can assign one.
func ToDocument(payload any) (Document, error) {
	if doc, ok := payload.(Document); ok {
		return doc, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}

	if id, ok := doc["id"]; ok && (id == nil || id == "") {
		delete(doc, "id")
	}

	return doc, nil
}

// Serialize is the single outbound mapping pass: "_id" becomes "id" and every
// store-native identifier, at any depth, becomes its string form.
func Serialize(doc Document) Document {
	if doc == nil {
		return nil
	}

	out := make(Document, len(doc))
	for k, v := range doc {
		if k == IDField {
			out["id"] = IDString(v)
			continue
		}
		out[k] = normalize(v)
	}

	return out
}

// Decode maps a stored document into a typed record.
func Decode(doc Document, out any) error {
	raw, err := json.Marshal(Serialize(doc))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	return nil
}

// IDString renders an identifier value as a string.
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case hexer:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}

func normalize(v any) any {
	switch val := v.(type) {
	case hexer:
		return val.Hex()
	case Document:
		return Serialize(val)
	case map[string]any:
		return Serialize(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
