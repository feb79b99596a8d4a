package actor

import (
	"strings"

	"github.com/skatamatic/blulok-cloud-sub001/core/auth"

	"github.com/gofiber/fiber/v2"
)

// Header names set by the upstream auth gateway after it verifies the
// caller's session. This service trusts them; it never parses credentials.
const (
	HeaderActorID         = "X-Actor-ID"
	HeaderActorRole       = "X-Actor-Role"
	HeaderActorFacilities = "X-Actor-Facilities"
)

const localsKey = "actor"

// New returns a middleware that materializes the authenticated actor from
// gateway headers into request locals. Requests without an actor id are
// rejected; role checks happen in the service layer.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderActorID)
		if id == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing actor identity",
			})
		}

		var facilities []string
		if raw := c.Get(HeaderActorFacilities); raw != "" {
			for _, f := range strings.Split(raw, ",") {
				if f = strings.TrimSpace(f); f != "" {
					facilities = append(facilities, f)
				}
			}
		}

		c.Locals(localsKey, auth.Actor{
			ID:          id,
			Role:        auth.Role(c.Get(HeaderActorRole)),
			FacilityIDs: facilities,
		})

		return c.Next()
	}
}

// FromCtx returns the actor stored by New, if any.
func FromCtx(c *fiber.Ctx) (auth.Actor, bool) {
	a, ok := c.Locals(localsKey).(auth.Actor)
	return a, ok
}
