package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps "METHOD route-template" keys to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"GET /healthz": SecurityPublic,

	// Lot directory - Public
	"GET /api/v1/lots":             SecurityPublic,
	"GET /api/v1/lots/{id}":        SecurityPublic,
	"POST /api/v1/lots/{id}/quote": SecurityPublic,

	// Lot management - Access Protected
	"GET /api/v1/lots/mine":          SecurityAccess,
	"POST /api/v1/lots":              SecurityAccess,
	"PUT /api/v1/lots/{id}":          SecurityAccess,
	"DELETE /api/v1/lots/{id}":       SecurityAccess,
	"GET /api/v1/lots/{id}/stats":    SecurityAccess,
	"GET /api/v1/lots/{id}/bookings": SecurityAccess,

	// Bookings - Access Protected
	"POST /api/v1/bookings":             SecurityAccess,
	"GET /api/v1/bookings/mine":         SecurityAccess,
	"GET /api/v1/bookings/{id}":         SecurityAccess,
	"POST /api/v1/bookings/{id}/cancel": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given method and route template
func GetSecurityLevel(method, route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method+" "+route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
