package strategy

import (
	"encoding/json"
	"sort"
	"strings"
)

func requireNum(class string, params map[string]any, key string) (float64, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, &ConfigError{Class: class, Param: key, Reason: "is required"}
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, &ConfigError{Class: class, Param: key, Reason: "must be a number"}
		}
		return f, nil
	default:
		return 0, &ConfigError{Class: class, Param: key, Reason: "must be a number"}
	}
}

func rejectUnknown(info Info, params map[string]any) error {
	allowed := make(map[string]bool, len(info.Params))
	for _, p := range info.Params {
		allowed[p.Name] = true
	}
	var extra []string
	for key := range params {
		if !allowed[key] {
			extra = append(extra, key)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return &ConfigError{Class: info.Class, Param: strings.Join(extra, ","), Reason: "is not a parameter of this strategy"}
}
