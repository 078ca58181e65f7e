package content

// DeepMerge возвращает новую структуру: копию target, поверх которой наложен source.
// Вложенные объекты сливаются рекурсивно, всё остальное (в том числе массивы) из source
// заменяет значение целиком. target и source не изменяются.
func DeepMerge(target, source map[string]interface{}) map[string]interface{} {
	result := deepCopyMap(target)
	for key, value := range source {
		src, srcIsMap := value.(map[string]interface{})
		dst, dstIsMap := result[key].(map[string]interface{})
		if srcIsMap && dstIsMap {
			result[key] = DeepMerge(dst, src)
			continue
		}
		result[key] = deepCopy(value)
	}
	return result
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}
