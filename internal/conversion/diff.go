package conversion

import "sort"

// Missing 计算对账差集：存在于源桶但不存在于已处理桶的对象名集合。
// 输入中的重复项按集合语义去重，输出按字典序排序以保证处理顺序确定。
func Missing(source, processed []string) []string {
	done := make(map[string]struct{}, len(processed))
	for _, name := range processed {
		done[name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(source))
	pending := make([]string, 0, len(source))
	for _, name := range source {
		if _, ok := done[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		pending = append(pending, name)
	}

	sort.Strings(pending)
	return pending
}
