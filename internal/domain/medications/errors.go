package medications

import "errors"

var (
	// ErrInvalidArgument: un setter recibió un valor fuera de dominio.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientSupply: la cantidad no alcanza para los días de aviso pedidos.
	ErrInsufficientSupply = errors.New("insufficient supply for reminder lead time")

	ErrNotFound  = errors.New("medication not found")
	ErrDuplicate = errors.New("medication already exists")
	ErrForbidden = errors.New("forbidden")
)
