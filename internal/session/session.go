// Package session exposes the acting user of a request and the bearer tokens
// that identify it.
package session

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LocalsKey is the Fiber locals key holding the authenticated user id.
const LocalsKey = "userID"

// Actor is the request-scoped identity: a user id, or nobody.
type Actor struct {
	userID uint
}

// Anonymous returns an actor with no user.
func Anonymous() Actor {
	return Actor{}
}

// User returns an actor for userID. A zero id is anonymous.
func User(userID uint) Actor {
	return Actor{userID: userID}
}

// FromFiber reads the actor stored by the authentication middleware.
func FromFiber(c *fiber.Ctx) Actor {
	if uid, ok := c.Locals(LocalsKey).(uint); ok {
		return User(uid)
	}
	return Anonymous()
}

// ID returns the user id and whether the actor is authenticated.
func (a Actor) ID() (uint, bool) {
	return a.userID, a.userID != 0
}

// Authenticated reports whether a user is present.
func (a Actor) Authenticated() bool {
	return a.userID != 0
}

// Is reports whether the actor is the given user.
func (a Actor) Is(userID uint) bool {
	return a.userID != 0 && a.userID == userID
}

// Require returns the user id or an UNAUTHORIZED error.
func (a Actor) Require() (uint, error) {
	if a.userID == 0 {
		return 0, models.NewUnauthorizedError("Authentication required")
	}
	return a.userID, nil
}

// Authorize fails with UNAUTHORIZED for anonymous actors and FORBIDDEN when
// the actor does not own the resource.
func (a Actor) Authorize(ownerID uint) error {
	if _, err := a.Require(); err != nil {
		return err
	}
	if a.userID != ownerID {
		return models.NewForbiddenError("You do not have permission to modify this resource")
	}
	return nil
}
