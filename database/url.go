package database

import (
	"fmt"
	"strings"
)

// ConstructDatabaseURL appends databaseName to baseURL, keeping any query string,
// and defaults sslmode to disable. An empty databaseName returns baseURL unchanged.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	base, query, hasQuery := strings.Cut(strings.TrimRight(baseURL, "/"), "?")
	if hasQuery {
		base = strings.TrimRight(base, "/")
	}

	databaseURL := fmt.Sprintf("%s/%s", base, databaseName)
	if hasQuery && query != "" {
		databaseURL += "?" + query
	}

	if !strings.Contains(databaseURL, "sslmode=") {
		separator := "?"
		if strings.Contains(databaseURL, "?") {
			separator = "&"
		}
		databaseURL += separator + "sslmode=disable"
	}

	return databaseURL
}
