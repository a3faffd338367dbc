// README: Business rejection sentinels for the order lifecycle.
package order

import "errors"

var (
	ErrNotFound      = errors.New("order not found")
	ErrTaken         = errors.New("order already taken")
	ErrNotWaiting    = errors.New("order not awaiting an agent")
	ErrTerminal      = errors.New("order already terminal")
	ErrInvalidStatus = errors.New("invalid tracking status")
	ErrUnauthorized  = errors.New("actor does not own this order")
	ErrBadRequest    = errors.New("bad request")
)
