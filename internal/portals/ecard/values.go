package ecard

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// amount is a monetary field sent in cents. Anything that is not a JSON
// number decodes as zero.
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	*a = amount(CentsToAmount(data))
	return nil
}

// CentsToAmount converts a raw JSON value in cents into yuan.
func CentsToAmount(raw json.RawMessage) float64 {
	value, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	if err != nil {
		return 0
	}
	return math.Round(value) / 100
}
