package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIssueType(t *testing.T) {
	got, err := ParseIssueType(" Road_Pothole ")
	require.NoError(t, err)
	assert.Equal(t, IssueRoadPothole, got)

	got, err = ParseIssueType("road")
	require.NoError(t, err)
	assert.Equal(t, IssueRoadPothole, got)

	got, err = ParseIssueType("other")
	require.NoError(t, err)
	assert.Equal(t, IssueOthers, got)

	for _, raw := range []string{"", "default", "volcano"} {
		_, err := ParseIssueType(raw)
		assert.ErrorIs(t, err, ErrInvalidCategory, raw)
	}
}

func TestDepartmentFor(t *testing.T) {
	assert.Equal(t, "roads", DepartmentFor(IssueRoadPothole))
	assert.Equal(t, "roads", DepartmentFor("road"))
	assert.Equal(t, "parks", DepartmentFor(IssueTree))
	assert.Equal(t, DeptNone, DepartmentFor(IssueDefault))
	assert.Equal(t, DeptOthers, DepartmentFor(IssueOthers))
	assert.Equal(t, DeptOthers, DepartmentFor("volcano"))
}

func TestIsKnownDepartment(t *testing.T) {
	assert.True(t, IsKnownDepartment("water"))
	assert.True(t, IsKnownDepartment(DeptOthers))
	assert.False(t, IsKnownDepartment(DeptNone))
	assert.False(t, IsKnownDepartment("finance"))
}

func TestCategoriesReturnsCopy(t *testing.T) {
	c := Categories()
	c[0].Label = "changed"
	assert.NotEqual(t, "changed", Categories()[0].Label)
}
