package jsaudit

import "unicode/utf8"

// Split partitions content into consecutive slices of maxSize characters.
// The final slice may be shorter. Concatenating the result in order yields
// content exactly. Cuts ignore token and line boundaries.
func Split(content string, maxSize int) ([]string, error) {
	if maxSize <= 0 {
		return nil, &ConfigError{Field: "max_chunk_size", Reason: "must be positive"}
	}
	if runeLen(content) <= maxSize {
		return []string{content}, nil
	}

	chunks := make([]string, 0, chunkCount(runeLen(content), maxSize))
	start, n := 0, 0
	for i := range content {
		if n == maxSize {
			chunks = append(chunks, content[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(chunks, content[start:]), nil
}

// chunkCount returns ceil(length / maxSize).
func chunkCount(length, maxSize int) int {
	if length == 0 {
		return 1
	}
	return (length + maxSize - 1) / maxSize
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
