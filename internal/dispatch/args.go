package dispatch

import "github.com/scraptool/corefetch/internal/toolerr"

func invalidArg(field, message string) *toolerr.ToolError {
	return toolerr.New(toolerr.CodeInvalidArgument, message, map[string]string{"field": field})
}

func requireString(args map[string]interface{}, key string) (string, *toolerr.ToolError) {
	v, ok := args[key]
	if !ok {
		return "", invalidArg(key, key+" is required")
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", invalidArg(key, key+" must be a non-empty string")
	}
	return s, nil
}

func optString(args map[string]interface{}, key, def string) string {
	v, ok := args[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func requireInt(args map[string]interface{}, key string) (int, *toolerr.ToolError) {
	v, ok := args[key]
	if !ok {
		return 0, invalidArg(key, key+" is required")
	}
	n, ok := numberToInt64(v)
	if !ok {
		return 0, invalidArg(key, key+" must be an integer")
	}
	return int(n), nil
}

func optInt(args map[string]interface{}, key string, def int) (int, *toolerr.ToolError) {
	v, ok := args[key]
	if !ok {
		return def, nil
	}
	n, ok := numberToInt64(v)
	if !ok {
		return 0, invalidArg(key, key+" must be an integer")
	}
	return int(n), nil
}

func optInt64(args map[string]interface{}, key string, def int64) (int64, *toolerr.ToolError) {
	v, ok := args[key]
	if !ok {
		return def, nil
	}
	n, ok := numberToInt64(v)
	if !ok {
		return 0, invalidArg(key, key+" must be an integer")
	}
	return n, nil
}

func optBool(args map[string]interface{}, key string, def bool) (bool, *toolerr.ToolError) {
	v, ok := args[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalidArg(key, key+" must be a boolean")
	}
	return b, nil
}

func optFloatPtr(args map[string]interface{}, key string) (*float64, *toolerr.ToolError) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := numberToFloat64(v)
	if !ok {
		return nil, invalidArg(key, key+" must be a number")
	}
	return &f, nil
}

func optIntPtr(args map[string]interface{}, key string) (*int, *toolerr.ToolError) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	n, ok := numberToInt64(v)
	if !ok {
		return nil, invalidArg(key, key+" must be an integer")
	}
	i := int(n)
	return &i, nil
}

func optStringMap(args map[string]interface{}, key string) (map[string]string, *toolerr.ToolError) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil, invalidArg(key, key+" must be an object of string values")
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		s, ok := val.(string)
		if !ok {
			return nil, invalidArg(key, key+"."+k+" must be a string")
		}
		out[k] = s
	}
	return out, nil
}
