package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrAlreadyOwned indicates the content is already in the purchase registry
	ErrAlreadyOwned = errors.New("content already purchased")

	// ErrAlreadyInCart indicates an item with the same key is already in the cart
	ErrAlreadyInCart = errors.New("content already in cart")

	// ErrFreeContentNotCartable indicates a free item was offered to the cart
	ErrFreeContentNotCartable = errors.New("free content cannot be added to the cart")

	// ErrInvalidQuantity indicates a quantity below one
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrUnauthenticated indicates there is no signed-in session or the token was rejected
	ErrUnauthenticated = errors.New("not signed in")

	// ErrNetworkFailure indicates the marketplace API could not be reached or failed
	ErrNetworkFailure = errors.New("marketplace is unreachable")

	// ErrNotEntitled indicates a paid item that the user has not purchased
	ErrNotEntitled = errors.New("content not purchased")

	// ErrTransfer indicates a download failed in transit
	ErrTransfer = errors.New("content transfer failed")

	// ErrLikeFailed indicates a like toggle was rejected and rolled back
	ErrLikeFailed = errors.New("like could not be saved")

	// ErrNotFound indicates the requested content does not exist
	ErrNotFound = errors.New("content not found")
)

// TransferError describes a failed binary download. It matches ErrTransfer
// with errors.Is.
type TransferError struct {
	ContentID  string
	StatusCode int    // HTTP status, 0 for transport failures
	Message    string // Server-provided message, if any
	Err        error
}

func (e *TransferError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("download of %s failed (%d): %s", e.ContentID, e.StatusCode, msg)
	}
	return fmt.Sprintf("download of %s failed: %s", e.ContentID, msg)
}

func (e *TransferError) Unwrap() error { return e.Err }

func (e *TransferError) Is(target error) bool { return target == ErrTransfer }

// Notice is a user-facing description of a failure
type Notice struct {
	Title  string
	Remedy string
}

// Describe maps an error to a distinct notice. Each taxonomy error gets its own
// remediation so callers never fall back to a generic message when a specific
// one exists.
func Describe(err error) Notice {
	switch {
	case err == nil:
		return Notice{}
	case errors.Is(err, ErrAlreadyOwned):
		return Notice{Title: "You already own this", Remedy: "Find it in your purchases."}
	case errors.Is(err, ErrAlreadyInCart):
		return Notice{Title: "Already in your cart", Remedy: "Change the quantity from the cart."}
	case errors.Is(err, ErrFreeContentNotCartable):
		return Notice{Title: "This one is free", Remedy: "Download or play it directly."}
	case errors.Is(err, ErrInvalidQuantity):
		return Notice{Title: "Invalid quantity", Remedy: "Use remove to take an item out of the cart."}
	case errors.Is(err, ErrUnauthenticated):
		return Notice{Title: "Not signed in", Remedy: "Run `reveil login` and try again."}
	case errors.Is(err, ErrNotEntitled):
		return Notice{Title: "Purchase required", Remedy: "Buy this to download it."}
	case errors.Is(err, ErrTransfer):
		return Notice{Title: "Download failed", Remedy: "Try again in a moment."}
	case errors.Is(err, ErrLikeFailed):
		return Notice{Title: "Like not saved", Remedy: "Your like was undone; try again."}
	case errors.Is(err, ErrNetworkFailure):
		return Notice{Title: "Marketplace unreachable", Remedy: "Check your connection and try again."}
	case errors.Is(err, ErrNotFound):
		return Notice{Title: "Not found", Remedy: "The item may have been removed."}
	default:
		return Notice{Title: "Something went wrong", Remedy: err.Error()}
	}
}
