package advisor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeResponse parses a model response into out. Models often wrap JSON in
// markdown fences or prose, so the decoder works on the outermost {...}
// span. A ParseError carries the raw response when decoding fails.
func decodeResponse(agent, response string, out interface{}) error {
	body := response
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return &ParseError{Agent: agent, RawResponse: response, Err: fmt.Errorf("no JSON object in response")}
	}
	if err := json.Unmarshal([]byte(body[start:end+1]), out); err != nil {
		return &ParseError{Agent: agent, RawResponse: response, Err: err}
	}
	return nil
}
