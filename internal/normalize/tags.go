package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CoerceTags turns user supplied tag text into a tag list.
//
// A JSON array is taken as-is, anything else is split on commas with blanks
// dropped. A nil result means no tags were supplied and is stored as NULL; a
// non-nil empty slice only comes from an explicit "[]".
func CoerceTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		switch v := decoded.(type) {
		case []any:
			tags := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					tags = append(tags, s)
				} else if item != nil {
					tags = append(tags, fmt.Sprint(item))
				}
			}
			return tags
		case string:
			return splitTags(v)
		case nil:
			return nil
		}
	}

	return splitTags(raw)
}

// EncodeTags renders tags for the JSON column; nil encodes to SQL NULL.
func EncodeTags(tags []string) (*string, error) {
	if tags == nil {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("unable to encode tags: %w", err)
	}
	encoded := string(data)
	return &encoded, nil
}

// DecodeTags reads the JSON column back; NULL decodes to nil.
func DecodeTags(column *string) ([]string, error) {
	if column == nil || strings.TrimSpace(*column) == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(*column), &tags); err != nil {
		return nil, fmt.Errorf("unable to decode tags %q: %w", *column, err)
	}
	return tags, nil
}

func splitTags(text string) []string {
	var tags []string
	for _, part := range strings.Split(text, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
