// Package engine is the client for the Janus federated-learning gateway.
// Every remote operation is an RPC carried over a single HTTP POST endpoint;
// the operation is selected by the method field of a fixed request envelope,
// not by URL path.
package engine

import "encoding/json"

// methodSuffix is appended to every operation name by the gateway's routing
// convention. Callers never see or set it.
const methodSuffix = ".0001100000000000000000000000000000000.lx0000000000000.trustbe.net"

// Remote result codes.
const (
	CodeSuccess       = "E0000000000"
	CodeSuccessLegacy = "200"
	CodeRequestFailed = "E0000000500"
	CodeBadRequest    = "E0000000400"
	CodeNotFound      = "E0000000404"
)

// Envelope is the fixed request shape for every gateway operation.
type Envelope struct {
	Method  string          `json:"method"`
	Content EnvelopeContent `json:"content"`
}

// EnvelopeContent wraps the operation parameters.
type EnvelopeContent struct {
	Param map[string]any `json:"param"`
}

// BuildEnvelope constructs the request envelope for an operation. Pure and
// deterministic: the suffix is appended to the method and params are wrapped
// under content.param with no other keys added.
func BuildEnvelope(method string, params map[string]any) Envelope {
	if params == nil {
		params = map[string]any{}
	}
	return Envelope{
		Method:  method + methodSuffix,
		Content: EnvelopeContent{Param: params},
	}
}

// Response is the canonical result shape for every gateway operation. A
// well-formed response always carries a code; anything other than the
// success codes is a remote-reported failure.
type Response struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Cause     any             `json:"cause,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Signature string          `json:"signature,omitempty"`
	Success   bool            `json:"success,omitempty"`

	// Raw holds the body of a non-JSON gateway response. Such responses are
	// treated as transport failures; the text is kept for diagnostics.
	Raw string `json:"raw,omitempty"`
}

// OK reports whether the response carries a success code.
func (r *Response) OK() bool {
	return r != nil && (r.Code == CodeSuccess || r.Code == CodeSuccessLegacy)
}

// DecodeContent unmarshals the content field into v.
func (r *Response) DecodeContent(v any) error {
	if len(r.Content) == 0 {
		return nil
	}
	return json.Unmarshal(r.Content, v)
}

// FailedRequest is the sentinel envelope standing in for an absent or
// malformed transport response.
func FailedRequest() *Response {
	return &Response{Code: CodeRequestFailed, Message: "request failed"}
}

// localError builds a locally-constructed failure envelope. It never goes
// over the wire.
func localError(code, message string) *Response {
	return &Response{Code: code, Message: message}
}
