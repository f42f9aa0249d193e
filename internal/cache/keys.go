package cache

import "fmt"

// AnalyzerReuseKey keys a ready analyzer id by its schema fingerprint.
func AnalyzerReuseKey(fingerprint string) string {
	return fmt.Sprintf("analyzer:reuse:%s", fingerprint)
}
