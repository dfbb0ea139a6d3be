package engine

import (
	"regexp"
	"strconv"
)

// Station identifiers are free text ("3号炉", "炉12"); ranking extracts the
// first run of digits. Teams without a parseable number sort last.

const unrankedStation = 999

var stationDigits = regexp.MustCompile(`\d+`)

func StationRank(stoveNumber string) int {
	match := stationDigits.FindString(stoveNumber)
	if match == "" {
		return unrankedStation
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return unrankedStation
	}
	return n
}

const maxPageSize = 20

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	PageSize    int  `json:"pageSize"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// paginate clamps page into [1, totalPages] (1 when there are no pages) and
// pageSize into [1, maxPageSize], returning the slice bounds for the page.
func paginate(total, page, pageSize int) (int, int, Pagination) {
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	totalPages := (total + pageSize - 1) / pageSize

	if page < 1 || totalPages == 0 {
		page = 1
	} else if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := min(start+pageSize, total)

	return start, end, Pagination{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}
