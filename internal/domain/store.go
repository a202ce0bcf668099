package domain

// CartStorage persists carts between sessions, keyed by owner identity
// (user id, or the anonymous id when signed out).
type CartStorage interface {
	LoadCart(owner string) ([]CartItem, bool, error)
	SaveCart(owner string, items []CartItem) error
	DeleteCart(owner string) error
	Close() error
}
