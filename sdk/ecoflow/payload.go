// Package ecoflow defines the contract between the EcoFlow host and the
// middleware steps this plugin contributes: the per-request payload bag, the
// step context with its continuation, declared input schemas, and a registry
// of step factories the host builds steps from.
package ecoflow

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MsgKey is the conventional payload key carrying structured step results.
const MsgKey = "msg"

// Payload is the mutable message bag shared by all steps of one in-flight
// pipeline request. It is a JSON document; steps read upstream values by
// gjson path and write their outcome under the "msg" envelope. A payload
// belongs to exactly one request and is not safe for concurrent use.
type Payload struct {
	raw []byte
}

// NewPayload returns an empty payload.
func NewPayload() *Payload {
	return &Payload{raw: []byte(`{}`)}
}

// PayloadFromJSON wraps an existing JSON document. Invalid or empty input
// yields an empty payload rather than an error; upstream data is advisory.
func PayloadFromJSON(data []byte) *Payload {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return NewPayload()
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return &Payload{raw: raw}
}

// Get reads a value by gjson path, e.g. "msg.email".
func (p *Payload) Get(path string) gjson.Result {
	return gjson.GetBytes(p.raw, path)
}

// GetString reads a value by path and returns its string form, or "" when
// the path does not exist.
func (p *Payload) GetString(path string) string {
	res := p.Get(path)
	if !res.Exists() {
		return ""
	}
	return res.String()
}

// Set writes a value at the given path, creating intermediate objects.
func (p *Payload) Set(path string, value any) error {
	raw, err := sjson.SetBytes(p.raw, path, value)
	if err != nil {
		return err
	}
	p.raw = raw
	return nil
}

// Msg returns the current "msg" envelope.
func (p *Payload) Msg() gjson.Result {
	return p.Get(MsgKey)
}

// SetMsg replaces the "msg" envelope.
func (p *Payload) SetMsg(value any) error {
	return p.Set(MsgKey, value)
}

// JSON returns the payload document. The returned slice is the live backing
// buffer; callers must not mutate it.
func (p *Payload) JSON() []byte {
	return p.raw
}

// Decode unmarshals the payload document into v.
func (p *Payload) Decode(v any) error {
	return json.Unmarshal(p.raw, v)
}
