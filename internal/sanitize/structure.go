package sanitize

import "fmt"

// Structural limits for parsed JSON bodies.
const (
	maxDepth       = 10
	maxObjectKeys  = 100
	maxKeyLength   = 100
	maxArrayLength = 1000
	maxStringValue = 5000
)

// CheckStructure walks a decoded JSON document and enforces the structural
// limits: nesting depth, object key count and length, array length, string
// value length. String keys and values are also run through the signature
// scan. Returns nil when the document is acceptable.
func CheckStructure(doc any) error {
	return checkNode(doc, 1)
}

func checkNode(node any, depth int) error {
	switch v := node.(type) {
	case map[string]any:
		if depth > maxDepth {
			return fmt.Errorf("JSON structure too deep (max %d levels)", maxDepth)
		}
		if len(v) > maxObjectKeys {
			return fmt.Errorf("too many keys in JSON object (max %d)", maxObjectKeys)
		}
		for key, value := range v {
			if len(key) > maxKeyLength {
				return fmt.Errorf("JSON key too long (max %d characters)", maxKeyLength)
			}
			if Suspicious(key) {
				return fmt.Errorf("JSON key contains potentially harmful content")
			}
			if err := checkNode(value, depth+1); err != nil {
				return err
			}
		}
	case []any:
		if depth > maxDepth {
			return fmt.Errorf("JSON structure too deep (max %d levels)", maxDepth)
		}
		if len(v) > maxArrayLength {
			return fmt.Errorf("JSON array too large (max %d items)", maxArrayLength)
		}
		for _, item := range v {
			if err := checkNode(item, depth+1); err != nil {
				return err
			}
		}
	case string:
		if len(v) > maxStringValue {
			return fmt.Errorf("JSON string value too long (max %d characters)", maxStringValue)
		}
		if Suspicious(v) {
			return fmt.Errorf("JSON string value contains potentially harmful content")
		}
	}

	return nil
}
