// Package results defines the benchmark result record and the scalar
// flattening rules used before persistence.
package results

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Serializer converts a value of a custom type into a scalar or a map of
// scalars so it can be stored as tabular columns.
type Serializer func(v interface{}) interface{}

// Result is one recorded benchmark execution.
type Result struct {
	RunID     string                 `json:"run_id"`
	BenchName string                 `json:"bench_name"`
	Inputs    map[string]interface{} `json:"inputs"`
	Outputs   map[string]interface{} `json:"outputs"`
	Meta      Metadata               `json:"meta"`
	CreatedAt time.Time              `json:"created_at"`
}

// New builds a result with a fresh run ID and timestamp. Inputs and outputs
// must already be flattened.
func New(benchName string, inputs, outputs map[string]interface{}, meta Metadata) *Result {
	return &Result{
		RunID:     uuid.NewString(),
		BenchName: benchName,
		Inputs:    inputs,
		Outputs:   outputs,
		Meta:      meta,
		CreatedAt: time.Now(),
	}
}

// Flatten converts a value map into scalar columns. Nested maps become
// prefixed keys (a.b -> "a_b"); custom types go through their registered
// serializer first. Values that still are not scalars after that are an
// error, since they cannot live in a tabular store.
func Flatten(data map[string]interface{}, serializers map[reflect.Type]Serializer) (map[string]interface{}, error) {
	flat := make(map[string]interface{})
	for key, value := range data {
		if err := flattenValue(flat, key, value, serializers); err != nil {
			return nil, err
		}
	}
	return flat, nil
}

func flattenValue(dst map[string]interface{}, key string, value interface{}, serializers map[reflect.Type]Serializer) error {
	if isScalar(value) {
		dst[key] = value
		return nil
	}

	if serializers != nil {
		if ser, ok := serializers[reflect.TypeOf(value)]; ok {
			value = ser(value)
			if isScalar(value) {
				dst[key] = value
				return nil
			}
		}
	}

	if m, ok := value.(map[string]interface{}); ok {
		for k, v := range m {
			if err := flattenValue(dst, key+"_"+k, v, serializers); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("results: unsupported type %T for column %q", value, key)
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
