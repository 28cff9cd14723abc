package academics

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterQueriesBindBigintIDs(t *testing.T) {
	untyped := regexp.MustCompile(`\$\d+ = (0|'')`)
	for name, query := range map[string]string{
		"students":    studentFilterWhere,
		"student ids": studentIDsQuery,
		"results":     resultFilterWhere,
	} {
		t.Run(name, func(t *testing.T) {
			require.False(t, untyped.MatchString(query), query)
			require.Contains(t, query, "::bigint = 0")
		})
	}
}
