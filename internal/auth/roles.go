package auth

import "adcards/internal/model"

// RoleAllows reports whether an operator role may manage cards and the
// ledger. The ledger core never inspects tokens; the HTTP layer consults
// this guard before calling into it.
func RoleAllows(role string) bool {
	return role == model.RoleAdmin || role == model.RoleAccount
}
