package locations

import (
	"errors"
	"strings"
)

func (s *Service) validate(location Location) error {
	if strings.TrimSpace(location.Name) == "" {
		return errors.New("location name is required")
	}
	if !location.Type.Valid() {
		return errors.New("location type must be laboratory or warehouse")
	}
	return nil
}
