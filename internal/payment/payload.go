package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// Payload is an explicitly ordered list of name/value pairs. The order
// matters: the checksum is computed over the field values in insertion
// order, and both ends must walk the same sequence. An unordered map
// here would be a silent protocol break.
type Payload struct {
	fields []payloadField
}

type payloadField struct {
	Name  string
	Value interface{}
}

func (p *Payload) Add(name string, value interface{}) {
	p.fields = append(p.fields, payloadField{Name: name, Value: value})
}

// Get returns the value of a named field, for tests and logging.
func (p *Payload) Get(name string) (interface{}, bool) {
	for _, f := range p.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// ChecksumValues flattens the field values in insertion order. A
// list-valued field contributes every item's values, each item in its
// own field order.
func (p *Payload) ChecksumValues() []string {
	var values []string
	for _, f := range p.fields {
		switch v := f.Value.(type) {
		case []ProductItem:
			for _, item := range v {
				values = append(values, item.checksumValues()...)
			}
		default:
			values = append(values, stringify(v))
		}
	}
	return values
}

// MarshalJSON emits the fields as a JSON object in insertion order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// ProductItem is one order line in the outbound payload. Field order is
// checksum-significant.
type ProductItem struct {
	Code        string `json:"Code"`
	Amount      int    `json:"Amount"`
	Price       int64  `json:"Price"` // minor currency units per unit
	Description string `json:"Description"`
	Taxcode     string `json:"Taxcode"`
}

func (i ProductItem) checksumValues() []string {
	return []string{
		i.Code,
		strconv.Itoa(i.Amount),
		strconv.FormatInt(i.Price, 10),
		i.Description,
		i.Taxcode,
	}
}

// Tax rates the processor accepts, keyed by parts-per-million so no
// floating point comparison is involved.
var taxcodeByPPM = map[int64]string{
	24_000_000: "24",
	14_000_000: "14",
	10_000_000: "10",
	0:          "0",
}

// taxcodeForRate maps a product tax rate to the processor's tax code.
// An unmapped rate is a hard failure: it must never be silently dropped
// from the order totals.
func taxcodeForRate(ppm int64) (string, error) {
	code, ok := taxcodeByPPM[ppm]
	if !ok {
		return "", errors.Wrapf(ErrPayloadValidation, "unsupported tax rate %d ppm", ppm)
	}
	return code, nil
}
