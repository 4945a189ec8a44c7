// Package sitematch содержит нечеткое сравнение доменов с allow-list.
//
// Сравнение намеренно разрешающее: строки совпадают, если одна является
// подстрокой другой в любом направлении. "leetcode" матчит "leetcode.com",
// и "notleetcode.org" тоже. Это поведение продукта, а не баг.
package sitematch

import "strings"

// Normalize приводит домен/запись allow-list к сравнимому виду.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeAll нормализует список, сохраняя порядок.
func NormalizeAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, Normalize(s))
	}
	return out
}

// Fuzzy — симметричное сравнение подстрок. Аргументы должны быть нормализованы.
func Fuzzy(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// IsLoopback — дашборд MindTussle и локальная разработка всегда разрешены.
func IsLoopback(host string) bool {
	host = Normalize(host)
	return strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1")
}

// IsAllowed решает, разрешен ли hostname при данном allow-list.
func IsAllowed(host string, allowed []string) bool {
	host = Normalize(host)
	if IsLoopback(host) {
		return true
	}
	for _, site := range allowed {
		if Fuzzy(host, Normalize(site)) {
			return true
		}
	}
	return false
}

// AnyFuzzy — хотя бы одна запись совпадает с site в любом направлении.
func AnyFuzzy(site string, allowed []string) bool {
	for _, a := range allowed {
		if Fuzzy(site, a) {
			return true
		}
	}
	return false
}

// AnyContained — site содержит хотя бы одну запись (одностороннее сравнение).
func AnyContained(site string, allowed []string) bool {
	for _, a := range allowed {
		if strings.Contains(site, a) {
			return true
		}
	}
	return false
}
