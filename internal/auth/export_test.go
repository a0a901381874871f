package auth

import "time"

// SetClock replaces the issuer's clock in tests.
func (t *TokenIssuer) SetClock(now func() time.Time) { t.now = now }

// SetCost lowers the bcrypt cost in tests.
func (s *Service) SetCost(cost int) { s.cost = cost }
