package resolver

import "github.com/git-hulk/pathtemplate/pkg/template"

// Merge returns a copy of data completed with harvested. The merge is additive per
// namespace: a harvested namespace fills in the keys the caller left out but never
// replaces a caller value, and a caller scalar under a namespace key stays as is.
// Neither argument is modified.
func Merge(data, harvested template.Data) template.Data {
	merged := make(template.Data, len(data)+len(harvested))
	for key, value := range data {
		merged[key] = copyValue(value)
	}
	for key, value := range harvested {
		existing, ok := merged[key]
		if !ok {
			merged[key] = copyValue(value)
			continue
		}
		dst, dstIsMap := existing.(map[string]any)
		src, srcIsMap := asMap(value)
		if dstIsMap && srcIsMap {
			fillMissing(dst, src)
		}
	}
	return merged
}

func fillMissing(dst, src map[string]any) {
	for key, value := range src {
		existing, ok := dst[key]
		if !ok {
			dst[key] = copyValue(value)
			continue
		}
		dstMap, dstIsMap := existing.(map[string]any)
		srcMap, srcIsMap := asMap(value)
		if dstIsMap && srcIsMap {
			fillMissing(dstMap, srcMap)
		}
	}
}

func asMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		converted := make(map[string]any, len(m))
		for k, v := range m {
			converted[k] = v
		}
		return converted, true
	}
	return nil, false
}

// copyValue deep-copies nested maps; map[string]string becomes map[string]any so
// merged namespaces share one shape.
func copyValue(value any) any {
	m, ok := asMap(value)
	if !ok {
		return value
	}
	copied := make(map[string]any, len(m))
	for k, v := range m {
		copied[k] = copyValue(v)
	}
	return copied
}
