package suppliers

import (
	"errors"
	"strings"
)

func (s *Service) validate(supplier Supplier) error {
	if strings.TrimSpace(supplier.Name) == "" {
		return errors.New("supplier name is required")
	}
	if supplier.ContactEmail != "" && !strings.Contains(supplier.ContactEmail, "@") {
		return errors.New("supplier contact email is invalid")
	}
	return nil
}
