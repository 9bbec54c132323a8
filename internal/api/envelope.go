package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// envelopeVersion is bumped when the envelope shape changes.
const envelopeVersion = 1

// Envelope is the JSON shape of every API response.
//
//	{"v":1,"success":true,"data":{...}}
//	{"v":1,"success":false,"error":"...","code":"...","message":"...","details":{...}}
type Envelope struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps huma response bodies in an Envelope.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case Envelope, *Envelope, []byte:
		return v, nil
	case *APIError:
		return newErrorEnvelope(body), nil
	case huma.StatusError:
		return Envelope{V: envelopeVersion, Error: body.Error()}, nil
	default:
		return Envelope{V: envelopeVersion, Success: true, Data: v}, nil
	}
}

func newErrorEnvelope(e *APIError) Envelope {
	env := Envelope{V: envelopeVersion, Error: e.Message}
	if e.Code != "" {
		env.Code = e.Code
		env.Message = e.Message
		env.Details = e.Details
	}
	return env
}
