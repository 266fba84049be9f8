package mcp

import (
	"bytes"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vidpage/vidpage/internal/errors"
)

// decode unmarshals tool arguments into T. Unknown arguments are rejected
// so a misspelled field fails instead of being silently dropped.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, errors.NewValidation("arguments must be a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return result, errors.NewValidation("invalid arguments: " + err.Error())
	}
	return result, nil
}
