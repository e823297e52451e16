package topology

import (
	"bytes"
	"sort"

	"github.com/ajitpratap0/toposplit/pkg/json"
)

// objectWriter writes JSON object members in caller-controlled order
type objectWriter struct {
	buf bytes.Buffer
	n   int
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *objectWriter) member(key string, raw []byte) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(raw)
	w.n++
	return nil
}

// value marshals v and writes it under key
func (w *objectWriter) value(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.member(key, raw)
}

// rest writes every member of m not listed in skip, in key order
func (w *objectWriter) rest(m map[string]json.RawMessage, skip ...string) error {
	keys := make([]string, 0, len(m))
outer:
	for k := range m {
		for _, s := range skip {
			if k == s {
				continue outer
			}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.member(k, m[k]); err != nil {
			return err
		}
	}
	return nil
}

func (w *objectWriter) bytes() []byte {
	w.buf.WriteByte('}')
	return w.buf.Bytes()
}

func cloneMembers(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = cloneRaw(v)
	}
	return out
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	return append(json.RawMessage(make([]byte, 0, len(v))), v...)
}

func isNull(raw []byte) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// decodeMembers decodes an object. A JSON null or non-object is reported
// via ok=false.
func decodeMembers(data []byte) (map[string]json.RawMessage, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, false, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, err
	}
	return m, true, nil
}
