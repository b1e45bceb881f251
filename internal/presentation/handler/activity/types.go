package activity

import (
	"errors"

	"github.com/hilthontt/civicreport/internal/domain"
)

var errRange = errors.New("from must not be after to")

func errInvalidTime(param string) error {
	return errors.New(param + " must be an RFC 3339 timestamp")
}

type activityResponse struct {
	Activity []domain.ActivityLog `json:"activity"`
}
