package storage

import (
	"encoding/json"

	"ghostfetch/internal/shared/errs"
)

// Encode serialises a value for backends that store bytes.
func Encode[V any](v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errs.New(errs.Storage, "encode value").Base(err)
	}
	return data, nil
}

func Decode[V any](data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errs.New(errs.Storage, "decode value").Base(err)
	}
	return v, nil
}
