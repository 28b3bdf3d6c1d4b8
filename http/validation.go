package http

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	relay "github.com/somnia-social/relay"
)

// relayBatchSchema rejects malformed bodies before any field is trusted.
// Format constraints here mirror the service-level validation; the schema
// catches shape errors (wrong types, missing keys, empty arrays) with a
// structural error message.
const relayBatchSchema = `{
  "type": "object",
  "required": ["user", "calls", "nonce", "deadline", "signature"],
  "properties": {
    "user": {
      "type": "string",
      "pattern": "^0x[0-9a-fA-F]{40}$"
    },
    "calls": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["target", "value", "data"],
        "properties": {
          "target": {
            "type": "string",
            "pattern": "^0x[0-9a-fA-F]{40}$"
          },
          "value": {
            "type": "string",
            "pattern": "^[0-9]+$"
          },
          "data": {
            "type": "string",
            "pattern": "^0x[0-9a-fA-F]*$"
          }
        }
      }
    },
    "nonce": {
      "type": "integer",
      "minimum": 0
    },
    "deadline": {
      "type": "integer",
      "minimum": 1
    },
    "signature": {
      "type": "string",
      "pattern": "^0x[0-9a-fA-F]{130}$"
    }
  }
}`

var relayBatchSchemaLoader = gojsonschema.NewStringLoader(relayBatchSchema)

// ValidateAndDecodeRelayBody validates a request body against the relay
// batch schema and decodes it. Returns a descriptive error naming the first
// offending field when the body does not conform.
func ValidateAndDecodeRelayBody(body []byte) (*relay.RelayRequest, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}

	documentLoader := gojsonschema.NewBytesLoader(body)
	result, err := gojsonschema.Validate(relayBatchSchemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("invalid request body: not valid JSON - %v", err)
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			return nil, fmt.Errorf("invalid request body: %s: %s", desc.Context().String(), desc.Description())
		}
	}

	var req relay.RelayRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid request body: %v", err)
	}
	return &req, nil
}
