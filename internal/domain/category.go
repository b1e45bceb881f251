package domain

import "strings"

type IssueType string

const (
	IssueDefault     IssueType = "default"
	IssueRoadPothole IssueType = "road_pothole"
	IssueStreetlight IssueType = "streetlight"
	IssueSanitation  IssueType = "sanitation"
	IssueWater       IssueType = "water"
	IssueTree        IssueType = "tree"
	IssueOthers      IssueType = "others"
)

const (
	DeptNone   = "none"
	DeptOthers = "others"
)

// Category is one row of the static issue type table.
type Category struct {
	Key        IssueType `json:"key"`
	Label      string    `json:"label"`
	Department string    `json:"department"`
}

var categories = []Category{
	{Key: IssueDefault, Label: "Select an issue type", Department: DeptNone},
	{Key: IssueRoadPothole, Label: "Pothole / Road Damage", Department: "roads"},
	{Key: IssueStreetlight, Label: "Streetlight / Electricity", Department: "electrical"},
	{Key: IssueSanitation, Label: "Garbage / Sanitation", Department: "sanitation"},
	{Key: IssueWater, Label: "Water / Drainage", Department: "water"},
	{Key: IssueTree, Label: "Tree / Vegetation", Department: "parks"},
	{Key: IssueOthers, Label: "Other", Department: DeptOthers},
}

var issueAliases = map[string]IssueType{
	"road":  IssueRoadPothole,
	"other": IssueOthers,
}

func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func LookupCategory(key IssueType) (Category, bool) {
	for _, c := range categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

// ParseIssueType accepts a known key or alias. The placeholder key is
// rejected because it does not describe an issue.
func ParseIssueType(raw string) (IssueType, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := issueAliases[key]; ok {
		return alias, nil
	}
	c, ok := LookupCategory(IssueType(key))
	if !ok || c.Key == IssueDefault {
		return "", ErrInvalidCategory
	}
	return c.Key, nil
}

// DepartmentFor maps an issue type to its department. Unknown keys
// fall into the catch-all department.
func DepartmentFor(key IssueType) string {
	if alias, ok := issueAliases[string(key)]; ok {
		key = alias
	}
	if c, ok := LookupCategory(key); ok {
		return c.Department
	}
	return DeptOthers
}

// IsKnownDepartment reports whether dept is a routable department of the
// category table.
func IsKnownDepartment(dept string) bool {
	if dept == DeptNone {
		return false
	}
	for _, c := range categories {
		if c.Department == dept {
			return true
		}
	}
	return false
}
