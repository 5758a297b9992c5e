package util

// DistinctBy keeps the first element for each key, preserving order
func DistinctBy[T any, K comparable](items []T, key func(T) K) []T {
	present := make(map[K]bool)
	var list []T

	for _, item := range items {
		k := key(item)
		if !present[k] {
			present[k] = true
			list = append(list, item)
		}
	}
	return list
}

func RemoveDuplicateStrings(strings []string, ignoreList []string) []string {
	presentStrings := make(map[string]bool)
	var list []string

	for _, ignoreString := range ignoreList {
		presentStrings[ignoreString] = true
	}

	for _, item := range strings {
		if _, value := presentStrings[item]; !value && item != "" {
			presentStrings[item] = true
			list = append(list, item)
		}
	}
	return list
}
