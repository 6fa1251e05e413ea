package records

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gradverify/internal/credential/models"
)

// decodeData reads stored graduate data keeping numbers as json.Number, so
// integers beyond float64 precision survive and the canonical payload is
// rebuilt from the same values that were signed.
func decodeData(raw []byte) (models.GraduateData, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data models.GraduateData
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode graduate data: %w", err)
	}
	if data == nil {
		data = models.GraduateData{}
	}
	return data, nil
}
