package apps

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/micro-ha/appdriver/internal/appmanagement"
	"github.com/micro-ha/appdriver/internal/remote"
)

func decodeBool(cmd remote.Command, raw any) (bool, error) {
	value, ok := raw.(bool)
	if !ok {
		return false, &ResultTypeError{Command: cmd, Want: "bool", Got: raw}
	}
	return value, nil
}

func decodeState(cmd remote.Command, raw any) (appmanagement.State, error) {
	code, ok := integralCode(raw)
	if !ok {
		return 0, &ResultTypeError{Command: cmd, Want: "integer state code", Got: raw}
	}
	state, err := appmanagement.StateOfCode(code)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", cmd, ErrDecode, err)
	}
	return state, nil
}

func integralCode(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case float64:
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return integralCode(parsed)
	default:
		return 0, false
	}
}
