package identity

import (
	"context"
	"fmt"

	"github.com/go-chi/jwtauth/v5"
)

// Actor is the identity context carried in the access token claims.
type Actor struct {
	TechnicianID   string
	Role           Role
	BusinessUnitID string
}

// FromContext extracts the actor from the verified JWT claims.
func FromContext(ctx context.Context) (Actor, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Actor{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	technicianID, ok := claims["technician_id"].(string)
	if !ok || technicianID == "" {
		return Actor{}, fmt.Errorf("technician_id claim is missing or invalid")
	}

	roleStr, ok := claims["role"].(string)
	if !ok || roleStr == "" {
		return Actor{}, fmt.Errorf("role claim is missing or invalid")
	}

	// business_unit_id is optional: admins may not be pinned to a unit.
	businessUnitID, _ := claims["business_unit_id"].(string)

	return Actor{
		TechnicianID:   technicianID,
		Role:           Role(roleStr),
		BusinessUnitID: businessUnitID,
	}, nil
}
