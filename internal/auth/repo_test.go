package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thvgger/igs-portal/internal/shared"
)

func TestUserFilterBindsTypedRole(t *testing.T) {
	require.NotRegexp(t, `\$\d+ = (0|'')`, userFilterWhere)
	require.Contains(t, userFilterWhere, "$1::text = ''")
}

func TestStaffTableByRole(t *testing.T) {
	table, err := staffTable(shared.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, "admins", table)

	table, err = staffTable(shared.RoleLowerAdmin)
	require.NoError(t, err)
	require.Equal(t, "lower_admins", table)

	_, err = staffTable(shared.RoleTeacher)
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
}
