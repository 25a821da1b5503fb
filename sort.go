package pagination

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
)

type (
	ColumnAlias = string

	// ColumnMapping maps external column aliases to fully qualified column
	// names. Use it when bare column names could cause an "ambiguous column
	// name" error.
	ColumnMapping = map[ColumnAlias]string
)

// ParseSort builds an ordering column list plus traversal direction from
// strings in the format "column asc|desc". Column aliases are resolved via
// ColumnMapping; unknown aliases error with the closest known alias as a
// hint.
//
// A descriptor carries a single direction for the whole tuple, so every
// entry must agree: mixed asc/desc is an error.
func ParseSort(stringOrderings []string, columnMapping ColumnMapping) ([]string, Direction, error) {
	columns := make([]string, 0, len(stringOrderings))
	direction := Direction("")
	aliases := lo.Keys(columnMapping)

	for _, stringOrdering := range stringOrderings {
		cutStringOrdering := strings.Split(strings.TrimSpace(stringOrdering), " ")
		if len(cutStringOrdering) != 2 {
			return nil, "", fmt.Errorf("invalid ordering string format '%s'", stringOrdering)
		}

		columnAlias := cutStringOrdering[0]
		entryDirection, err := parseDirectionKeyword(cutStringOrdering[1])
		if err != nil {
			return nil, "", err
		}

		if direction == "" {
			direction = entryDirection
		} else if direction != entryDirection {
			return nil, "", fmt.Errorf("mixed sort directions are not supported: '%s'", stringOrdering)
		}

		columnName := columnMapping[columnAlias]
		if columnName == "" {
			return nil, "", fmt.Errorf("invalid column alias '%s'. closest: '%s'", columnAlias, closestAlias(columnAlias, aliases))
		}

		columns = append(columns, columnName)
	}

	if len(columns) == 0 {
		return nil, "", fmt.Errorf("empty sort list")
	}

	return columns, direction, nil
}

func parseDirectionKeyword(keyword string) (Direction, error) {
	switch strings.ToUpper(keyword) {
	case "ASC":
		return DirectionNext, nil
	case "DESC":
		return DirectionPrev, nil
	default:
		return "", fmt.Errorf("invalid ordering direction '%s'", keyword)
	}
}

func closestAlias(input ColumnAlias, dataSet []ColumnAlias) ColumnAlias {
	minDist := math.MaxInt
	closest := ""

	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}

// levenshtein computes the edit distance between two rune slices with a
// single-row dynamic programming table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(a); i++ {
		previousDiagonal := row[0]
		row[0] = i

		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			current := min(row[j]+1, row[j-1]+1, previousDiagonal+cost)
			previousDiagonal = row[j]
			row[j] = current
		}
	}

	return row[len(b)]
}
